// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package probe

import (
	"net/netip"

	"grimm.is/flowsim/internal/engine"
	"grimm.is/flowsim/internal/netutil"
)

// Probe is a single evaluation unit: one source record, one destination
// network (possibly a per-host expansion of the destination record), and
// one port spec. Seq is the submission order used to keep output
// deterministic under parallel evaluation.
type Probe struct {
	Seq        int
	Src        Record
	Dst        Record
	DstNetwork netip.Prefix
	Port       PortSpec
}

type destination struct {
	record  Record
	network netip.Prefix
}

// Planner expands the input records into the probe stream: sources
// outermost, destinations next, ports innermost. Destination expansion
// is resolved up front; the cross product itself is never materialized.
type Planner struct {
	sources      []Record
	destinations []destination
	ports        []PortSpec
}

// NewPlanner builds the probe plan. In expand mode, destination CIDRs
// with at most mode.MaxHosts addresses are split into one host-sized
// network per usable host so the evaluator sees only atomic
// destinations; larger CIDRs pass through unchanged. Sources are never
// expanded.
func NewPlanner(sources, dests []Record, ports []PortSpec, mode engine.MatchMode) *Planner {
	p := &Planner{sources: sources, ports: ports}
	for _, dst := range dests {
		if mode.Mode == engine.ModeExpand && netutil.NumAddresses(dst.Network) <= mode.MaxHosts {
			for _, host := range netutil.HostAddrs(dst.Network) {
				p.destinations = append(p.destinations, destination{
					record:  dst,
					network: netip.PrefixFrom(host, 32),
				})
			}
			continue
		}
		p.destinations = append(p.destinations, destination{record: dst, network: dst.Network})
	}
	return p
}

// Total returns the number of probes the plan will emit.
func (p *Planner) Total() int {
	return len(p.sources) * len(p.destinations) * len(p.ports)
}

// SourceCount returns the number of source records, used for worker
// auto-sizing.
func (p *Planner) SourceCount() int {
	return len(p.sources)
}

// Walk emits probes in plan order. Emission stops at the first error
// from fn.
func (p *Planner) Walk(fn func(Probe) error) error {
	seq := 0
	for _, src := range p.sources {
		for _, dst := range p.destinations {
			for _, port := range p.ports {
				probe := Probe{
					Seq:        seq,
					Src:        src,
					Dst:        dst.record,
					DstNetwork: dst.network,
					Port:       port,
				}
				seq++
				if err := fn(probe); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
