package logging

import "strings"

// FormatSubject builds a component/stage subject string. The console handler
// composes its own subject from the stage and does not call this.
func FormatSubject(component, stage string) string {
	component = strings.TrimSpace(component)
	stage = strings.TrimSpace(stage)
	parts := make([]string, 0, 2)
	if component != "" {
		var formatted string
		if len(component) > 1 {
			formatted = strings.ToUpper(component[:1]) + strings.ToLower(component[1:])
		} else {
			formatted = strings.ToUpper(component)
		}
		parts = append(parts, formatted)
	}
	if stage != "" {
		parts = append(parts, stage)
	}
	return strings.Join(parts, " · ")
}
