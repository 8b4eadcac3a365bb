package build

import "strings"

// nameRule maps a description keyword to a project name. Rules are evaluated
// top to bottom; the first substring match wins.
type nameRule struct {
	keyword     string
	displayName string
	slug        string
}

var nameRules = []nameRule{
	{"calorie tracker", "Calorie Tracker", "calorie-tracker"},
	{"meditation timer", "Meditation Timer", "meditation-timer"},
	{"habit tracker", "Habit Tracker", "habit-tracker"},
	{"todo", "Todo List", "todo-list"},
	{"workout", "Workout Log", "workout-log"},
	{"recipe", "Recipe Book", "recipe-book"},
}

const (
	defaultDisplayName = "My App"
	defaultSlug        = "my-app"
)

// ClassifyName derives a project name from a free-text app description.
// Matching is case-insensitive and deterministic; naming never blocks or
// fails the provisioning path.
func ClassifyName(description string) AppName {
	lowered := strings.ToLower(description)
	for _, rule := range nameRules {
		if strings.Contains(lowered, rule.keyword) {
			return AppName{DisplayName: rule.displayName, Slug: rule.slug}
		}
	}
	return AppName{DisplayName: defaultDisplayName, Slug: defaultSlug}
}
