// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package engine

import (
	"fmt"
	"net/netip"

	"grimm.is/flowsim/internal/book"
	"grimm.is/flowsim/internal/model"
	"grimm.is/flowsim/internal/netutil"
)

// Mode selects how a requested CIDR is judged against address objects.
type Mode string

const (
	// ModeSegment matches only when an object subsumes the entire CIDR.
	ModeSegment Mode = "segment"
	// ModeSampleIP matches when an object contains the CIDR's network
	// address. Cheapest; representative-host semantics.
	ModeSampleIP Mode = "sample-ip"
	// ModeExpand requires every usable host of a small CIDR to be
	// contained, falling back to segment semantics for large CIDRs.
	ModeExpand Mode = "expand"
	// ModeFuzzy matches on any partial overlap. Used for routability
	// analysis.
	ModeFuzzy Mode = "fuzzy"
)

// DefaultMaxHosts bounds per-host expansion in expand mode.
const DefaultMaxHosts = 256

// ParseMode validates a mode name from the CLI.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeSegment, ModeSampleIP, ModeExpand, ModeFuzzy:
		return Mode(value), nil
	}
	return "", fmt.Errorf("unsupported match mode: %s", value)
}

// MatchMode bundles the mode with its expansion bound.
type MatchMode struct {
	Mode     Mode
	MaxHosts int
}

// addressObjectsOutcome folds the mode predicate over concrete objects.
// FQDN objects cannot be judged statically and taint a miss into
// unknown.
func addressObjectsOutcome(objects []model.AddressObject, network netip.Prefix, mm MatchMode) model.MatchOutcome {
	hasUnknown := false
	for _, obj := range objects {
		if obj.Type == model.AddressFQDN {
			hasUnknown = true
			continue
		}
		switch mm.Mode {
		case ModeSampleIP:
			if obj.ContainsIP(network.Addr()) {
				return model.OutcomeMatch
			}
		case ModeFuzzy:
			if obj.OverlapsNetwork(network) {
				return model.OutcomeMatch
			}
		case ModeExpand:
			if netutil.NumAddresses(network) <= mm.MaxHosts {
				if containsAllHosts(obj, network) {
					return model.OutcomeMatch
				}
			} else if obj.ContainsNetwork(network) {
				return model.OutcomeMatch
			}
		default:
			if obj.ContainsNetwork(network) {
				return model.OutcomeMatch
			}
		}
	}
	if hasUnknown {
		return model.OutcomeUnknown
	}
	return model.OutcomeNoMatch
}

func containsAllHosts(obj model.AddressObject, network netip.Prefix) bool {
	for _, host := range netutil.HostAddrs(network) {
		if !obj.ContainsIP(host) {
			return false
		}
	}
	return true
}

// addressGroupOutcome resolves the referenced names and folds the member
// outcomes under the match > unknown > no_match lattice. A name that
// resolves to nothing (dangling reference, empty group) contributes
// unknown.
func addressGroupOutcome(addresses *book.AddressBook, names []string, network netip.Prefix, mm MatchMode) model.MatchOutcome {
	var objects []model.AddressObject
	hasUnknown := false
	for _, name := range names {
		members := addresses.ResolveMembers(name)
		if len(members) == 0 {
			hasUnknown = true
			continue
		}
		objects = append(objects, members...)
	}
	if len(objects) == 0 && hasUnknown {
		return model.OutcomeUnknown
	}
	result := addressObjectsOutcome(objects, network, mm)
	if result == model.OutcomeNoMatch && hasUnknown {
		return model.OutcomeUnknown
	}
	return result
}

// serviceObjectsOutcome folds service entries; an unresolved service
// (no entries) taints a miss into unknown.
func serviceObjectsOutcome(services []model.ServiceObject, protocol model.Protocol, port int) model.MatchOutcome {
	hasUnknown := false
	for _, svc := range services {
		if svc.Unresolved() {
			hasUnknown = true
			continue
		}
		for _, entry := range svc.Entries {
			if entry.Matches(protocol, port) {
				return model.OutcomeMatch
			}
		}
	}
	if hasUnknown {
		return model.OutcomeUnknown
	}
	return model.OutcomeNoMatch
}

func serviceGroupOutcome(services *book.ServiceBook, names []string, protocol model.Protocol, port int) model.MatchOutcome {
	var resolved []model.ServiceObject
	hasUnknown := false
	for _, name := range names {
		members := services.ResolveMembers(name)
		if len(members) == 0 {
			hasUnknown = true
			continue
		}
		resolved = append(resolved, members...)
	}
	if len(resolved) == 0 && hasUnknown {
		return model.OutcomeUnknown
	}
	result := serviceObjectsOutcome(resolved, protocol, port)
	if result == model.OutcomeNoMatch && hasUnknown {
		return model.OutcomeUnknown
	}
	return result
}
