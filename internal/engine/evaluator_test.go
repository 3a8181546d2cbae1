// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package engine

import (
	"net/netip"
	"testing"

	"grimm.is/flowsim/internal/book"
	"grimm.is/flowsim/internal/model"
)

// fixture builds the rule set used by most evaluator tests:
// lan = 10.0.0.0/24, group G = [lan], policy P1 allows G -> all on tcp_80.
func fixture() (*book.AddressBook, *book.ServiceBook, []model.PolicyRule) {
	addresses := book.NewAddressBook()
	addresses.Objects["lan"] = model.AddressObject{
		Name:   "lan",
		Type:   model.AddressSubnet,
		Subnet: netip.MustParsePrefix("10.0.0.0/24"),
	}
	addresses.Objects["all"] = model.AddressObject{
		Name:   "all",
		Type:   model.AddressSubnet,
		Subnet: netip.MustParsePrefix("0.0.0.0/0"),
	}
	addresses.Groups["G"] = model.AddressGroup{Name: "G", Members: []string{"lan"}}

	services := book.NewServiceBook()
	services.Services["tcp_80"] = model.ServiceObject{
		Name:    "tcp_80",
		Entries: []model.ServiceEntry{{Protocol: model.ProtocolTCP, StartPort: 80, EndPort: 80}},
	}

	policies := []model.PolicyRule{{
		PolicyID:    "P1",
		Name:        "allow-web",
		Priority:    1,
		Source:      []string{"G"},
		Destination: []string{"all"},
		Services:    []string{"tcp_80"},
		Action:      "accept",
		Enabled:     true,
	}}
	return addresses, services, policies
}

func segmentMode() MatchMode {
	return MatchMode{Mode: ModeSegment, MaxHosts: DefaultMaxHosts}
}

func TestEvaluateExactAllow(t *testing.T) {
	addresses, services, policies := fixture()
	e := New(policies, addresses, services, segmentMode(), false, nil)

	detail := e.Evaluate(
		netip.MustParsePrefix("10.0.0.0/24"),
		netip.MustParsePrefix("0.0.0.0/0"),
		model.ProtocolTCP, 80,
	)
	if detail.Decision != model.DecisionAllow {
		t.Errorf("Decision = %v, want ALLOW", detail.Decision)
	}
	if detail.MatchedPolicyID != "P1" {
		t.Errorf("MatchedPolicyID = %q, want P1", detail.MatchedPolicyID)
	}
	if detail.Reason != model.ReasonMatchAccept {
		t.Errorf("Reason = %v, want MATCH_POLICY_ACCEPT", detail.Reason)
	}
}

func TestEvaluateImplicitDeny(t *testing.T) {
	addresses, services, policies := fixture()
	e := New(policies, addresses, services, segmentMode(), false, nil)

	detail := e.Evaluate(
		netip.MustParsePrefix("10.0.1.0/24"),
		netip.MustParsePrefix("0.0.0.0/0"),
		model.ProtocolTCP, 80,
	)
	if detail.Decision != model.DecisionDeny {
		t.Errorf("Decision = %v, want DENY", detail.Decision)
	}
	if detail.MatchedPolicyID != "" {
		t.Errorf("MatchedPolicyID = %q, want empty", detail.MatchedPolicyID)
	}
	if detail.Reason != model.ReasonImplicitDeny {
		t.Errorf("Reason = %v, want IMPLICIT_DENY", detail.Reason)
	}
}

func TestEvaluateUnknownService(t *testing.T) {
	addresses, services, policies := fixture()
	services.Services["svcX"] = model.ServiceObject{Name: "svcX"} // unresolved
	policies[0].Enabled = false
	policies = append(policies, model.PolicyRule{
		PolicyID:    "P2",
		Name:        "mystery",
		Priority:    2,
		Source:      []string{"all"},
		Destination: []string{"all"},
		Services:    []string{"svcX"},
		Action:      "accept",
		Enabled:     true,
	})

	for _, mode := range []Mode{ModeSegment, ModeSampleIP, ModeExpand, ModeFuzzy} {
		e := New(policies, addresses, services, MatchMode{Mode: mode, MaxHosts: DefaultMaxHosts}, false, nil)
		detail := e.Evaluate(
			netip.MustParsePrefix("10.0.0.0/24"),
			netip.MustParsePrefix("0.0.0.0/0"),
			model.ProtocolTCP, 80,
		)
		if detail.Decision != model.DecisionUnknown {
			t.Errorf("mode %s: Decision = %v, want UNKNOWN", mode, detail.Decision)
		}
		if detail.MatchedPolicyID != "P2" {
			t.Errorf("mode %s: MatchedPolicyID = %q, want P2", mode, detail.MatchedPolicyID)
		}
		if detail.Reason != model.ReasonUnknownCondition {
			t.Errorf("mode %s: Reason = %v, want UNKNOWN_MATCH_CONDITION", mode, detail.Reason)
		}
	}
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	addresses, services, policies := fixture()
	policies = append(policies, model.PolicyRule{
		PolicyID:    "P2",
		Name:        "deny-web",
		Priority:    2,
		Source:      []string{"G"},
		Destination: []string{"all"},
		Services:    []string{"tcp_80"},
		Action:      "deny",
		Enabled:     true,
	})
	e := New(policies, addresses, services, segmentMode(), false, nil)

	detail := e.Evaluate(
		netip.MustParsePrefix("10.0.0.0/24"),
		netip.MustParsePrefix("0.0.0.0/0"),
		model.ProtocolTCP, 80,
	)
	if detail.MatchedPolicyID != "P1" {
		t.Errorf("MatchedPolicyID = %q, want P1 (first match)", detail.MatchedPolicyID)
	}
}

func TestEvaluateDisabledPolicySkipped(t *testing.T) {
	addresses, services, policies := fixture()
	policies[0].Enabled = false
	e := New(policies, addresses, services, segmentMode(), false, nil)

	detail := e.Evaluate(
		netip.MustParsePrefix("10.0.0.0/24"),
		netip.MustParsePrefix("0.0.0.0/0"),
		model.ProtocolTCP, 80,
	)
	if detail.Reason != model.ReasonImplicitDeny {
		t.Errorf("Reason = %v, want IMPLICIT_DENY", detail.Reason)
	}
}

func TestEvaluateNonAcceptActionIsDeny(t *testing.T) {
	addresses, services, policies := fixture()
	policies[0].Action = "quarantine"
	e := New(policies, addresses, services, segmentMode(), false, nil)

	detail := e.Evaluate(
		netip.MustParsePrefix("10.0.0.0/24"),
		netip.MustParsePrefix("0.0.0.0/0"),
		model.ProtocolTCP, 80,
	)
	if detail.Decision != model.DecisionDeny {
		t.Errorf("Decision = %v, want DENY", detail.Decision)
	}
	if detail.Reason != model.ReasonMatchDeny {
		t.Errorf("Reason = %v, want MATCH_POLICY_DENY", detail.Reason)
	}
	// The verbatim action survives for downstream tooling.
	if detail.MatchedPolicyAction != "quarantine" {
		t.Errorf("MatchedPolicyAction = %q, want quarantine", detail.MatchedPolicyAction)
	}
}

func TestEvaluateSchedule(t *testing.T) {
	addresses, services, policies := fixture()
	policies[0].Schedule = "night"

	src := netip.MustParsePrefix("10.0.0.0/24")
	dst := netip.MustParsePrefix("0.0.0.0/0")

	e := New(policies, addresses, services, segmentMode(), false, nil)
	if detail := e.Evaluate(src, dst, model.ProtocolTCP, 80); detail.Reason != model.ReasonImplicitDeny {
		t.Errorf("scheduled policy evaluated: Reason = %v, want IMPLICIT_DENY", detail.Reason)
	}

	ignoring := New(policies, addresses, services, segmentMode(), true, nil)
	if detail := ignoring.Evaluate(src, dst, model.ProtocolTCP, 80); detail.Decision != model.DecisionAllow {
		t.Errorf("ignore-schedule: Decision = %v, want ALLOW", detail.Decision)
	}

	// "always" in any case counts as active.
	policies[0].Schedule = "Always"
	active := New(policies, addresses, services, segmentMode(), false, nil)
	if detail := active.Evaluate(src, dst, model.ProtocolTCP, 80); detail.Decision != model.DecisionAllow {
		t.Errorf("always schedule: Decision = %v, want ALLOW", detail.Decision)
	}
}

func TestEvaluateUnknownDoesNotFlipDecision(t *testing.T) {
	// Introducing an unresolved name into a matching group may only
	// move the decision to UNKNOWN, never across allow/deny.
	addresses, services, policies := fixture()
	addresses.Groups["G"] = model.AddressGroup{Name: "G", Members: []string{"lan", "ghost"}}

	e := New(policies, addresses, services, segmentMode(), false, nil)
	detail := e.Evaluate(
		netip.MustParsePrefix("10.0.0.0/24"),
		netip.MustParsePrefix("0.0.0.0/0"),
		model.ProtocolTCP, 80,
	)
	// lan still matches, so the unknown member is irrelevant.
	if detail.Decision != model.DecisionAllow {
		t.Errorf("Decision = %v, want ALLOW", detail.Decision)
	}

	// When the concrete member stops matching, unknown must surface
	// instead of a definite deny.
	miss := e.Evaluate(
		netip.MustParsePrefix("192.168.0.0/24"),
		netip.MustParsePrefix("0.0.0.0/0"),
		model.ProtocolTCP, 80,
	)
	if miss.Decision != model.DecisionUnknown {
		t.Errorf("Decision = %v, want UNKNOWN", miss.Decision)
	}
}

func TestScheduleActive(t *testing.T) {
	tests := []struct {
		schedule string
		want     bool
	}{
		{"", true},
		{"always", true},
		{"ALWAYS", true},
		{"Always", true},
		{"night", false},
		{"weekend", false},
	}
	for _, tt := range tests {
		if got := ScheduleActive(tt.schedule); got != tt.want {
			t.Errorf("ScheduleActive(%q) = %v, want %v", tt.schedule, got, tt.want)
		}
	}
}
