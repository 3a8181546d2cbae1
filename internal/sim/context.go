// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package sim drives the probe matrix through the evaluator: serially or
// across a bounded worker pool, with deterministic output ordering either
// way.
package sim

import (
	"strconv"
	"strings"

	"grimm.is/flowsim/internal/book"
	"grimm.is/flowsim/internal/engine"
	"grimm.is/flowsim/internal/model"
	"grimm.is/flowsim/internal/probe"
)

// Context bundles the frozen data shared by every worker. Nothing in it
// is written after construction.
type Context struct {
	Policies       []model.PolicyRule
	Addresses      *book.AddressBook
	Services       *book.ServiceBook
	Mode           engine.MatchMode
	IgnoreSchedule bool
}

// Header is the output CSV column order. The order is part of the
// external contract and must not change.
var Header = []string{
	"src_network_segment",
	"dst_network_segment",
	"dst_gn",
	"dst_site",
	"dst_location",
	"service_label",
	"protocol",
	"port",
	"decision",
	"matched_policy_id",
	"matched_policy_action",
	"reason",
}

// Row is one output record.
type Row struct {
	SrcSegment   string
	DstSegment   string
	DstGN        string
	DstSite      string
	DstLocation  string
	ServiceLabel string
	Protocol     string
	Port         int
	Decision     model.Decision
	PolicyID     string
	PolicyAction string
	Reason       model.Reason
}

// Strings renders the row in Header order.
func (r Row) Strings() []string {
	return []string{
		r.SrcSegment,
		r.DstSegment,
		r.DstGN,
		r.DstSite,
		r.DstLocation,
		r.ServiceLabel,
		r.Protocol,
		strconv.Itoa(r.Port),
		string(r.Decision),
		r.PolicyID,
		r.PolicyAction,
		string(r.Reason),
	}
}

// rowFor builds the output row for one evaluated probe. In fuzzy mode an
// allow also produces a companion routable row whose destination column
// is replaced by the matched policy's declared destination names.
func rowFor(ctx *Context, p probe.Probe, detail model.MatchDetail) (Row, *Row) {
	row := Row{
		SrcSegment:   p.Src.Network.String(),
		DstSegment:   p.DstNetwork.String(),
		DstGN:        p.Dst.Field("GN"),
		DstSite:      p.Dst.Field("Site"),
		DstLocation:  p.Dst.Field("Location"),
		ServiceLabel: p.Port.Label,
		Protocol:     string(p.Port.Protocol),
		Port:         p.Port.Port,
		Decision:     detail.Decision,
		PolicyID:     detail.MatchedPolicyID,
		PolicyAction: detail.MatchedPolicyAction,
		Reason:       detail.Reason,
	}
	if ctx.Mode.Mode != engine.ModeFuzzy || detail.Reason != model.ReasonMatchAccept {
		return row, nil
	}
	routable := row
	routable.DstSegment = strings.Join(detail.MatchedDestinations, ", ")
	return row, &routable
}
