// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package engine evaluates probes against an ordered policy list using
// first-match semantics with an implicit-deny tail. Match conditions are
// three-valued so unresolvable references surface as UNKNOWN instead of
// silently matching or missing.
package engine

import (
	"net/netip"
	"strings"

	"grimm.is/flowsim/internal/book"
	"grimm.is/flowsim/internal/logging"
	"grimm.is/flowsim/internal/model"
)

// Evaluator holds the frozen rule set and match configuration. It is
// read-only after construction and safe to share across workers.
type Evaluator struct {
	policies       []model.PolicyRule
	addresses      *book.AddressBook
	services       *book.ServiceBook
	mode           MatchMode
	ignoreSchedule bool
	log            *logging.Logger
}

// New builds an evaluator. Policies must already be sorted by ascending
// priority; the books must be flattened.
func New(policies []model.PolicyRule, addresses *book.AddressBook, services *book.ServiceBook, mode MatchMode, ignoreSchedule bool, log *logging.Logger) *Evaluator {
	if log == nil {
		log = logging.Discard()
	}
	return &Evaluator{
		policies:       policies,
		addresses:      addresses,
		services:       services,
		mode:           mode,
		ignoreSchedule: ignoreSchedule,
		log:            log,
	}
}

// Evaluate scans the policies in stored order and returns the first
// definitive decision for the probe.
//
// A policy whose source, destination or service definitively does not
// match is skipped. A policy that would otherwise match but depends on an
// unresolvable reference stops the scan with UNKNOWN: a later rule cannot
// be trusted to decide traffic an earlier rule might already have
// handled.
func (e *Evaluator) Evaluate(srcNetwork, dstNetwork netip.Prefix, protocol model.Protocol, port int) model.MatchDetail {
	for _, policy := range e.policies {
		if !policy.Enabled {
			continue
		}
		if !e.ignoreSchedule && !ScheduleActive(policy.Schedule) {
			e.log.Debug("skipping policy outside schedule", "policy_id", policy.PolicyID, "schedule", policy.Schedule)
			continue
		}

		srcOutcome := addressGroupOutcome(e.addresses, policy.Source, srcNetwork, e.mode)
		if srcOutcome == model.OutcomeNoMatch {
			continue
		}
		dstOutcome := addressGroupOutcome(e.addresses, policy.Destination, dstNetwork, e.mode)
		if dstOutcome == model.OutcomeNoMatch {
			continue
		}
		svcOutcome := serviceGroupOutcome(e.services, policy.Services, protocol, port)
		if svcOutcome == model.OutcomeNoMatch {
			continue
		}

		if srcOutcome == model.OutcomeUnknown || dstOutcome == model.OutcomeUnknown || svcOutcome == model.OutcomeUnknown {
			e.log.Debug("policy matched with unknown condition", "policy_id", policy.PolicyID)
			return model.MatchDetail{
				Decision:            model.DecisionUnknown,
				MatchedPolicyID:     policy.PolicyID,
				MatchedPolicyName:   policy.Name,
				MatchedPolicyAction: policy.Action,
				MatchedDestinations: policy.Destination,
				Reason:              model.ReasonUnknownCondition,
			}
		}

		// Vendor actions other than accept map to deny; the verbatim
		// action string is preserved for downstream re-interpretation.
		if strings.EqualFold(policy.Action, "accept") {
			e.log.Debug("policy matched allow", "policy_id", policy.PolicyID)
			return model.MatchDetail{
				Decision:            model.DecisionAllow,
				MatchedPolicyID:     policy.PolicyID,
				MatchedPolicyName:   policy.Name,
				MatchedPolicyAction: policy.Action,
				MatchedDestinations: policy.Destination,
				Reason:              model.ReasonMatchAccept,
			}
		}
		e.log.Debug("policy matched deny", "policy_id", policy.PolicyID)
		return model.MatchDetail{
			Decision:            model.DecisionDeny,
			MatchedPolicyID:     policy.PolicyID,
			MatchedPolicyName:   policy.Name,
			MatchedPolicyAction: policy.Action,
			MatchedDestinations: policy.Destination,
			Reason:              model.ReasonMatchDeny,
		}
	}

	return model.MatchDetail{
		Decision: model.DecisionDeny,
		Reason:   model.ReasonImplicitDeny,
	}
}
