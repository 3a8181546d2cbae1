// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package catalog carries the built-in table of well-known services.
// The table is generated data, not live system state: there is no file
// I/O and nothing here mutates after init, so books built from it are
// safe to share across workers.
package catalog

import (
	"strings"

	"grimm.is/flowsim/internal/model"
)

func tcp(port int) model.ServiceEntry {
	return model.ServiceEntry{Protocol: model.ProtocolTCP, StartPort: port, EndPort: port}
}

func udp(port int) model.ServiceEntry {
	return model.ServiceEntry{Protocol: model.ProtocolUDP, StartPort: port, EndPort: port}
}

// wellKnown maps uppercase service names to their conventional entries.
// Sourced from the IANA assignments for the services that show up in
// real firewall exports.
var wellKnown = map[string][]model.ServiceEntry{
	"FTP":        {tcp(21)},
	"FTP-DATA":   {tcp(20)},
	"SSH":        {tcp(22)},
	"TELNET":     {tcp(23)},
	"SMTP":       {tcp(25)},
	"DNS":        {udp(53)},
	"DHCP":       {udp(67), udp(68)},
	"TFTP":       {udp(69)},
	"HTTP":       {tcp(80)},
	"KERBEROS":   {tcp(88), udp(88)},
	"POP3":       {tcp(110)},
	"NTP":        {udp(123)},
	"NETBIOS-NS": {udp(137)},
	"IMAP":       {tcp(143)},
	"SNMP":       {udp(161)},
	"SNMP-TRAP":  {udp(162)},
	"BGP":        {tcp(179)},
	"LDAP":       {tcp(389)},
	"HTTPS":      {tcp(443)},
	"SMB":        {tcp(445)},
	"SYSLOG":     {udp(514)},
	"LDAPS":      {tcp(636)},
	"FTPS":       {tcp(990)},
	"MSSQL":      {tcp(1433)},
	"ORACLE":     {tcp(1521)},
	"NFS":        {tcp(2049), udp(2049)},
	"MYSQL":      {tcp(3306)},
	"RDP":        {tcp(3389)},
	"POSTGRES":   {tcp(5432)},
	"VNC":        {tcp(5900)},
	"REDIS":      {tcp(6379)},
	"HTTP-ALT":   {tcp(8080)},
}

// Lookup returns the well-known entries for a service name,
// case-insensitively. The second return is false when the name is not in
// the catalogue.
func Lookup(name string) ([]model.ServiceEntry, bool) {
	entries, ok := wellKnown[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	out := make([]model.ServiceEntry, len(entries))
	copy(out, entries)
	return out, true
}

// Services returns the catalogue as service objects keyed by their
// canonical uppercase names. Callers merge these into a service book with
// setdefault semantics so user definitions always win.
func Services() map[string]model.ServiceObject {
	services := make(map[string]model.ServiceObject, len(wellKnown))
	for name, entries := range wellKnown {
		out := make([]model.ServiceEntry, len(entries))
		copy(out, entries)
		services[name] = model.ServiceObject{Name: name, Entries: out}
	}
	return services
}
