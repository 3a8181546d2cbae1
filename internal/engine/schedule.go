// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package engine

import "strings"

// ScheduleActive reports whether a policy schedule should be treated as
// active. Only an absent schedule or the literal "always" counts; any
// named time window is inactive for a static analysis.
func ScheduleActive(schedule string) bool {
	if schedule == "" {
		return true
	}
	return strings.EqualFold(schedule, "always")
}
