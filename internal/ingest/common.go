// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ingest loads a policy rule set from one of the supported
// sources (vendor CLI dump, spreadsheet, relational database) into the
// analyzer's books and canonical policy list.
//
// All adapters share the same contract: the `all` address and `ALL`
// service pseudo-objects exist afterwards, the well-known catalogue is
// merged without overwriting user names, protocols are lowercase, and
// policies are sorted by ascending priority.
package ingest

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"grimm.is/flowsim/internal/book"
	"grimm.is/flowsim/internal/catalog"
	"grimm.is/flowsim/internal/errors"
	"grimm.is/flowsim/internal/model"
	"grimm.is/flowsim/internal/netutil"
)

// Data is the parsed payload every adapter returns.
type Data struct {
	Addresses *book.AddressBook
	Services  *book.ServiceBook
	Policies  []model.PolicyRule
}

func newData() *Data {
	return &Data{
		Addresses: book.NewAddressBook(),
		Services:  book.NewServiceBook(),
	}
}

var serviceEntryPattern = regexp.MustCompile(`^(tcp|udp)_(\d+)(?:-(\d+))?$`)

// ParseServiceEntry parses entries like tcp_80 or udp_1000-2000.
func ParseServiceEntry(value string) (model.ServiceEntry, error) {
	m := serviceEntryPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(value)))
	if m == nil {
		return model.ServiceEntry{}, errors.Errorf(errors.KindValidation, "invalid service entry: %s", value)
	}
	start, err := strconv.Atoi(m[2])
	if err != nil {
		return model.ServiceEntry{}, errors.Errorf(errors.KindValidation, "invalid service entry: %s", value)
	}
	end := start
	if m[3] != "" {
		end, err = strconv.Atoi(m[3])
		if err != nil {
			return model.ServiceEntry{}, errors.Errorf(errors.KindValidation, "invalid service entry: %s", value)
		}
	}
	if start < 1 || start > 65535 || end < 1 || end > 65535 {
		return model.ServiceEntry{}, errors.Errorf(errors.KindValidation, "port out of range: %s", value)
	}
	if start > end {
		return model.ServiceEntry{}, errors.Errorf(errors.KindValidation, "invalid port range: %s", value)
	}
	return model.ServiceEntry{
		Protocol:  model.Protocol(m[1]),
		StartPort: start,
		EndPort:   end,
	}, nil
}

// ParseAddressObject builds an address object from string fields. The
// type names follow the vendor vocabulary; exports sometimes mark subnet
// records as "none" while still carrying IP + netmask fields, so that
// spelling is accepted as a subnet too.
func ParseAddressObject(name, addressType, subnet, startIP, endIP string) (model.AddressObject, error) {
	switch strings.ToLower(strings.TrimSpace(addressType)) {
	case string(model.AddressSubnet):
		if subnet == "" {
			return model.AddressObject{}, errors.Errorf(errors.KindValidation, "missing subnet for address object: %s", name)
		}
		prefix, err := netutil.ParseIPv4Prefix(subnet)
		if err != nil {
			return model.AddressObject{}, errors.Wrapf(err, errors.KindValidation, "address object %s", name)
		}
		return model.AddressObject{Name: name, Type: model.AddressSubnet, Subnet: prefix}, nil

	case "none":
		if startIP == "" || endIP == "" {
			return model.AddressObject{}, errors.Errorf(errors.KindValidation, "missing subnet IP/mask for address object: %s", name)
		}
		prefix, err := netutil.ParseIPv4Prefix(startIP + "/" + endIP)
		if err != nil {
			return model.AddressObject{}, errors.Wrapf(err, errors.KindValidation, "address object %s", name)
		}
		return model.AddressObject{Name: name, Type: model.AddressSubnet, Subnet: prefix}, nil

	case string(model.AddressRange):
		if startIP == "" || endIP == "" {
			return model.AddressObject{}, errors.Errorf(errors.KindValidation, "missing IP range for address object: %s", name)
		}
		start, err := netutil.ParseIPv4Addr(startIP)
		if err != nil {
			return model.AddressObject{}, errors.Wrapf(err, errors.KindValidation, "address object %s", name)
		}
		end, err := netutil.ParseIPv4Addr(endIP)
		if err != nil {
			return model.AddressObject{}, errors.Wrapf(err, errors.KindValidation, "address object %s", name)
		}
		if start.Compare(end) > 0 {
			return model.AddressObject{}, errors.Errorf(errors.KindValidation, "inverted IP range for address object: %s", name)
		}
		return model.AddressObject{Name: name, Type: model.AddressRange, Start: start, End: end}, nil

	case string(model.AddressFQDN):
		return model.AddressObject{Name: name, Type: model.AddressFQDN}, nil
	}
	return model.AddressObject{}, errors.Errorf(errors.KindValidation, "unsupported address type: %s", addressType)
}

// registerServiceName adds a service definition for a name that appears
// only as a reference. Explicit tcp_/udp_ spellings become concrete
// entries; otherwise the well-known catalogue is consulted. Existing
// definitions and groups are never overwritten. Names that stay
// unregistered resolve to nothing and surface as unknown outcomes.
func registerServiceName(services *book.ServiceBook, name string) {
	normalized := strings.TrimSpace(name)
	if normalized == "" {
		return
	}
	if _, ok := services.Services[normalized]; ok {
		return
	}
	if _, ok := services.Groups[normalized]; ok {
		return
	}
	if strings.EqualFold(normalized, "ALL") {
		services.Services[normalized] = model.AnyService(normalized)
		return
	}
	lower := strings.ToLower(normalized)
	if strings.HasPrefix(lower, "tcp_") || strings.HasPrefix(lower, "udp_") {
		entry, err := ParseServiceEntry(normalized)
		if err != nil {
			return
		}
		services.Services[normalized] = model.ServiceObject{Name: normalized, Entries: []model.ServiceEntry{entry}}
		return
	}
	if entries, ok := catalog.Lookup(normalized); ok {
		services.Services[normalized] = model.ServiceObject{Name: normalized, Entries: entries}
	}
}

// finalize applies the shared adapter contract to freshly parsed data.
func finalize(data *Data) {
	if _, ok := data.Addresses.Objects["all"]; !ok {
		obj, _ := ParseAddressObject("all", string(model.AddressSubnet), "0.0.0.0/0", "", "")
		data.Addresses.Objects["all"] = obj
	}
	for name, svc := range catalog.Services() {
		if _, ok := data.Services.Services[name]; !ok {
			data.Services.Services[name] = svc
		}
	}
	if _, ok := data.Services.Services["ALL"]; !ok {
		data.Services.Services["ALL"] = model.AnyService("ALL")
	}
	sort.SliceStable(data.Policies, func(i, j int) bool {
		return data.Policies[i].Priority < data.Policies[j].Priority
	})
}
