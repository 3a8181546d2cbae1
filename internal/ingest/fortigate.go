// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ingest

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"grimm.is/flowsim/internal/logging"
	"grimm.is/flowsim/internal/model"
)

// fortigateState accumulates one `edit` block while walking the config.
type fortigateState struct {
	section string
	name    string
	fields  map[string][]string
}

func (s *fortigateState) set(key, value string) {
	s.fields[key] = append(s.fields[key], value)
}

func (s *fortigateState) first(key string) string {
	values := s.fields[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// ParseFortiGate parses a FortiGate CLI configuration dump. The format
// is block structured:
//
//	config firewall address
//	    edit "lan-net"
//	        set subnet 10.0.0.0 255.255.255.0
//	    next
//	end
//
// Repeated `set` keys accumulate. Address objects whose fields cannot be
// parsed are demoted to name-based objects with a warning rather than
// aborting the run.
func ParseFortiGate(r io.Reader, log *logging.Logger) (*Data, error) {
	if log == nil {
		log = logging.Discard()
	}
	data := newData()
	state := &fortigateState{fields: make(map[string][]string)}

	flush := func() {
		if state.name == "" {
			return
		}
		switch state.section {
		case "config firewall address":
			flushAddress(data, state, log)
		case "config firewall addrgrp":
			data.Addresses.Groups[state.name] = model.AddressGroup{
				Name:    state.name,
				Members: splitQuotedMembers(state.fields["member"]),
			}
		case "config firewall service custom":
			flushService(data, state)
		case "config firewall service group":
			flushServiceGroup(data, state)
		case "config firewall policy":
			flushPolicy(data, state)
		}
		state.name = ""
		state.fields = make(map[string][]string)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
		case strings.HasPrefix(line, "config "):
			flush()
			state.section = line
		case line == "end":
			flush()
			state.section = ""
		case strings.HasPrefix(line, "edit "):
			flush()
			state.name = strings.Trim(strings.TrimSpace(line[len("edit "):]), `"`)
		case line == "next":
			flush()
		case strings.HasPrefix(line, "set "):
			parts := strings.SplitN(line, " ", 3)
			if len(parts) == 3 {
				state.set(parts[1], strings.TrimSpace(parts[2]))
			}
		case strings.HasPrefix(line, "unset "):
			delete(state.fields, strings.TrimSpace(line[len("unset "):]))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	finalize(data)
	return data, nil
}

func flushAddress(data *Data, state *fortigateState, log *logging.Logger) {
	addressType := state.first("type")
	if addressType == "" {
		addressType = string(model.AddressSubnet)
	}
	subnet := strings.Join(state.fields["subnet"], " ")
	// FortiGate writes subnets as "<ip> <netmask>".
	if parts := strings.Fields(subnet); len(parts) == 2 {
		subnet = parts[0] + "/" + parts[1]
	}

	obj, err := ParseAddressObject(state.name, addressType, subnet, state.first("start-ip"), state.first("end-ip"))
	if err != nil {
		log.Warn("address parse error, demoting to name-based object",
			"name", state.name, "type", addressType, "error", err)
		obj, _ = ParseAddressObject(state.name, string(model.AddressFQDN), "", "", "")
	}
	data.Addresses.Objects[state.name] = obj
}

func flushService(data *Data, state *fortigateState) {
	var entries []model.ServiceEntry
	for _, key := range []string{"tcp-portrange", "udp-portrange"} {
		proto := strings.SplitN(key, "-", 2)[0]
		for _, raw := range state.fields[key] {
			for _, part := range strings.Fields(raw) {
				entry, err := ParseServiceEntry(proto + "_" + part)
				if err != nil {
					continue
				}
				entries = append(entries, entry)
			}
		}
	}
	if len(entries) == 0 {
		// A custom service without parsable port ranges matches anything.
		data.Services.Services[state.name] = model.AnyService(state.name)
		return
	}
	data.Services.Services[state.name] = model.ServiceObject{Name: state.name, Entries: entries}
}

func flushServiceGroup(data *Data, state *fortigateState) {
	members := splitQuotedMembers(state.fields["member"])
	data.Services.Groups[state.name] = model.ServiceGroup{Name: state.name, Members: members}
	for _, member := range members {
		registerServiceName(data.Services, member)
	}
}

func flushPolicy(data *Data, state *fortigateState) {
	services := splitQuotedMembers(state.fields["service"])
	for _, member := range services {
		registerServiceName(data.Services, member)
	}

	priority := len(data.Policies) + 1
	if n, err := strconv.Atoi(state.name); err == nil {
		priority = n
	}
	action := state.first("action")
	if action == "" {
		action = "deny"
	}
	status := state.first("status")
	if status == "" {
		status = "enable"
	}
	name := strings.Trim(state.first("name"), `"`)
	if name == "" {
		name = "no-name"
	}

	data.Policies = append(data.Policies, model.PolicyRule{
		PolicyID:    state.name,
		Name:        name,
		Priority:    priority,
		Source:      splitQuotedMembers(state.fields["srcaddr"]),
		Destination: splitQuotedMembers(state.fields["dstaddr"]),
		Services:    services,
		Action:      action,
		Enabled:     strings.EqualFold(status, "enable"),
		Schedule:    strings.Trim(state.first("schedule"), `"`),
	})
}

// splitQuotedMembers splits FortiGate member lists, which arrive as one
// or more whitespace separated, individually quoted values.
func splitQuotedMembers(values []string) []string {
	var members []string
	for _, value := range values {
		for _, field := range strings.Fields(value) {
			member := strings.Trim(field, `"`)
			if member != "" {
				members = append(members, member)
			}
		}
	}
	return members
}
