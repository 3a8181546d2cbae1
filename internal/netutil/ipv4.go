// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package netutil holds small pure helpers for IPv4 prefix and address
// arithmetic. Everything here operates on netip value types and does no
// I/O.
package netutil

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// ParseIPv4Addr parses a dotted-quad IPv4 address. IPv6 input is rejected.
func ParseIPv4Addr(value string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(value))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid IPv4 address: %s", value)
	}
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("only IPv4 is supported: %s", value)
	}
	return addr, nil
}

// ParseIPv4Prefix parses an IPv4 network in loose form and returns it
// canonicalized to its network address. Accepted forms:
//
//	10.0.0.0/24
//	10.0.0.0/255.255.255.0
//	10.0.0.1          (treated as a /32)
//
// Host bits in the input are cleared rather than rejected.
func ParseIPv4Prefix(value string) (netip.Prefix, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return netip.Prefix{}, fmt.Errorf("invalid IPv4 CIDR: %q", value)
	}

	addrPart, maskPart, hasMask := strings.Cut(raw, "/")
	addr, err := ParseIPv4Addr(addrPart)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid IPv4 CIDR: %s", value)
	}

	bits := 32
	if hasMask {
		if strings.Contains(maskPart, ".") {
			bits, err = maskBits(maskPart)
		} else {
			var p netip.Prefix
			p, err = netip.ParsePrefix(raw)
			if err == nil {
				bits = p.Bits()
			}
		}
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid IPv4 CIDR: %s", value)
		}
	}

	return netip.PrefixFrom(addr, bits).Masked(), nil
}

// maskBits converts a dotted-quad netmask into a prefix length.
func maskBits(mask string) (int, error) {
	addr, err := ParseIPv4Addr(mask)
	if err != nil {
		return 0, err
	}
	b := addr.As4()
	ones, total := net.IPMask(b[:]).Size()
	if total != 32 {
		return 0, fmt.Errorf("invalid netmask: %s", mask)
	}
	return ones, nil
}

// Broadcast returns the highest address in the prefix.
func Broadcast(p netip.Prefix) netip.Addr {
	base := addrToU32(p.Masked().Addr())
	hostBits := 32 - p.Bits()
	if hostBits == 0 {
		return p.Addr()
	}
	return u32ToAddr(base | (1<<hostBits - 1))
}

// NumAddresses returns the total address count of the prefix, including
// the network and broadcast addresses.
func NumAddresses(p netip.Prefix) int {
	return 1 << (32 - p.Bits())
}

// HostAddrs returns the usable host addresses of the prefix. For /31 and
// /32 there are no distinct hosts, so the network address itself stands
// in as the single representative.
func HostAddrs(p netip.Prefix) []netip.Addr {
	total := NumAddresses(p)
	if total <= 2 {
		return []netip.Addr{p.Masked().Addr()}
	}
	base := addrToU32(p.Masked().Addr())
	hosts := make([]netip.Addr, 0, total-2)
	for offset := 1; offset < total-1; offset++ {
		hosts = append(hosts, u32ToAddr(base+uint32(offset)))
	}
	return hosts
}

func addrToU32(a netip.Addr) uint32 {
	b := a.As4()
	return binary.BigEndian.Uint32(b[:])
}

func u32ToAddr(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}
