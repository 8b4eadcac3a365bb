package main

import "github.com/appdock/appdock/cmd"

func main() {
	cmd.Execute()
}
