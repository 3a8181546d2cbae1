// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

// Protocol is an L4 protocol name, always stored lowercase.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// ServiceEntry is a single protocol + port-range definition.
// An entry with an empty Protocol is the ANY entry and matches every
// protocol and port.
type ServiceEntry struct {
	Protocol  Protocol
	StartPort int
	EndPort   int
}

// IsAny reports whether this entry matches any protocol and port.
func (e ServiceEntry) IsAny() bool {
	return e.Protocol == ""
}

// Matches reports whether the entry covers the given protocol and port.
func (e ServiceEntry) Matches(protocol Protocol, port int) bool {
	if e.IsAny() {
		return true
	}
	if e.Protocol != protocol {
		return false
	}
	return e.StartPort <= port && port <= e.EndPort
}

// ServiceObject is a named service definition. An object with no entries
// is unresolved and contributes "unknown" to every match check.
type ServiceObject struct {
	Name    string
	Entries []ServiceEntry
}

// Unresolved reports whether the service carries no usable entries.
func (s ServiceObject) Unresolved() bool {
	return len(s.Entries) == 0
}

// AnyService builds a service that matches any protocol and port.
func AnyService(name string) ServiceObject {
	return ServiceObject{Name: name, Entries: []ServiceEntry{{}}}
}

// ServiceGroup is a named list of service member names, analogous to
// AddressGroup.
type ServiceGroup struct {
	Name    string
	Members []string
}
