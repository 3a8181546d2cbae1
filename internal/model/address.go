// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package model defines the immutable value types shared by the ingest
// parsers and the policy evaluator: address and service objects, policy
// rules, and evaluation outcomes.
package model

import (
	"net/netip"

	"grimm.is/flowsim/internal/netutil"
)

// AddressType identifies the variant of an address object.
// The values follow the vendor vocabulary so parsed objects round-trip
// without translation.
type AddressType string

const (
	// AddressSubnet is a single IPv4 network (ipmask in vendor terms).
	AddressSubnet AddressType = "ipmask"
	// AddressRange is an inclusive IPv4 address range.
	AddressRange AddressType = "iprange"
	// AddressFQDN is a name-only object with no IP information.
	// It cannot be resolved statically and contributes "unknown" to
	// every containment check.
	AddressFQDN AddressType = "fqdn"
)

// AddressObject is a named address definition referenced by policy rules.
// Exactly one variant is populated: Subnet for AddressSubnet, Start/End
// for AddressRange, neither for AddressFQDN.
type AddressObject struct {
	Name string
	Type AddressType

	// Subnet is canonicalized to its network address at construction.
	Subnet netip.Prefix

	// Start <= End holds for every range that reaches the evaluator.
	Start netip.Addr
	End   netip.Addr
}

// ContainsIP reports whether ip lies inside this object.
// FQDN objects always report false; the caller is responsible for
// lifting them into the unknown outcome.
func (a AddressObject) ContainsIP(ip netip.Addr) bool {
	switch a.Type {
	case AddressSubnet:
		return a.Subnet.Contains(ip)
	case AddressRange:
		return a.Start.Compare(ip) <= 0 && ip.Compare(a.End) <= 0
	}
	return false
}

// ContainsNetwork reports whether the entire network is inside this object.
func (a AddressObject) ContainsNetwork(network netip.Prefix) bool {
	switch a.Type {
	case AddressSubnet:
		return a.Subnet.Contains(network.Addr()) && a.Subnet.Bits() <= network.Bits()
	case AddressRange:
		return a.Start.Compare(network.Addr()) <= 0 &&
			netutil.Broadcast(network).Compare(a.End) <= 0
	}
	return false
}

// OverlapsNetwork reports whether any portion of the network intersects
// this object.
func (a AddressObject) OverlapsNetwork(network netip.Prefix) bool {
	switch a.Type {
	case AddressSubnet:
		return a.Subnet.Overlaps(network)
	case AddressRange:
		// No overlap only when the range ends before the network starts
		// or starts after the network ends.
		return !(a.End.Compare(network.Addr()) < 0 ||
			a.Start.Compare(netutil.Broadcast(network)) > 0)
	}
	return false
}

// AddressGroup is a named, ordered list of member names. Members may
// reference address objects or other groups; forward and dangling
// references are legal at construction time.
type AddressGroup struct {
	Name    string
	Members []string
}
