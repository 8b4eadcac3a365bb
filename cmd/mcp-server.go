package cmd

import (
	"context"
	"log"

	"github.com/appdock/appdock/internal/config"
	"github.com/appdock/appdock/internal/services"
	"github.com/appdock/appdock/internal/services/build"
	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Start the MCP server over stdio",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()
		svc := services.NewServices(conf)

		s := server.NewMCPServer("appdock", "0.1.0", server.WithToolCapabilities(false))

		createApp := mcp.NewTool("create_app",
			mcp.WithDescription("Provision a sandbox with a new Expo app and a public tunnel"),
			mcp.WithString("description",
				mcp.Required(),
				mcp.Description("Free-text description of the app to build"),
			),
			mcp.WithString("appName",
				mcp.Description("Optional display name for the app"),
			),
		)

		s.AddTool(createApp, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			description, err := req.RequireString("description")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			if svc.Build == nil {
				return mcp.NewToolResultError("Daytona API key not configured"), nil
			}

			result := svc.Build.Provision(ctx, &build.BuildRequest{
				Description: description,
				AppName:     req.GetString("appName", ""),
			})

			payload, err := sonic.Marshal(result)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			return mcp.NewToolResultText(string(payload)), nil
		})

		teardown := mcp.NewTool("teardown_sandbox",
			mcp.WithDescription("Tear down a provisioned sandbox by id"),
			mcp.WithString("sandboxId",
				mcp.Required(),
				mcp.Description("Id of the sandbox to tear down"),
			),
		)

		s.AddTool(teardown, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			sandboxID, err := req.RequireString("sandboxId")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			if svc.Lifecycle == nil {
				return mcp.NewToolResultError("Sandbox backend not configured"), nil
			}

			svc.Lifecycle.Teardown(ctx, sandboxID)

			return mcp.NewToolResultText("Sandbox " + sandboxID + " teardown completed"), nil
		})

		if err := server.ServeStdio(s); err != nil {
			log.Fatalln(err)
		}
	},
}

// Register the "mcp-server" command
func init() {
	rootCmd.AddCommand(mcpServerCmd)
}
