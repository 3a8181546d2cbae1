// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

// PolicyRule is a single canonicalized firewall rule. Source, Destination
// and Services hold names that resolve through the address and service
// books at evaluation time. Rule lists are sorted by ascending Priority
// before evaluation; PolicyID identifies the rule in output.
type PolicyRule struct {
	PolicyID    string
	Name        string
	Priority    int
	Source      []string
	Destination []string
	Services    []string
	Action      string
	Enabled     bool
	Schedule    string
	Comment     string
}
