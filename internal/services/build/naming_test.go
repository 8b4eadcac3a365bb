package build

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyName(t *testing.T) {
	tests := []struct {
		name        string
		description string
		wantDisplay string
		wantSlug    string
	}{
		{
			name:        "calorie tracker keyword",
			description: "Build a calorie tracker with daily goals",
			wantDisplay: "Calorie Tracker",
			wantSlug:    "calorie-tracker",
		},
		{
			name:        "matching is case insensitive",
			description: "I want a CALORIE TRACKER",
			wantDisplay: "Calorie Tracker",
			wantSlug:    "calorie-tracker",
		},
		{
			name:        "todo keyword",
			description: "a simple todo app for groceries",
			wantDisplay: "Todo List",
			wantSlug:    "todo-list",
		},
		{
			name:        "first rule wins over later keywords",
			description: "calorie tracker with workout log",
			wantDisplay: "Calorie Tracker",
			wantSlug:    "calorie-tracker",
		},
		{
			name:        "no rule matches",
			description: "something completely different",
			wantDisplay: "My App",
			wantSlug:    "my-app",
		},
		{
			name:        "empty description falls back to default",
			description: "",
			wantDisplay: "My App",
			wantSlug:    "my-app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyName(tt.description)
			require.Equal(t, tt.wantDisplay, got.DisplayName)
			require.Equal(t, tt.wantSlug, got.Slug)
		})
	}
}

func TestClassifyNameIsPure(t *testing.T) {
	first := ClassifyName("meditation timer for beginners")
	second := ClassifyName("meditation timer for beginners")
	require.Equal(t, first, second)
}
