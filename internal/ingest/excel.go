// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ingest

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"grimm.is/flowsim/internal/errors"
	"grimm.is/flowsim/internal/logging"
	"grimm.is/flowsim/internal/model"
)

const (
	sheetAddressObject = "Address Object"
	sheetAddressGroup  = "Address Group"
	sheetServiceGroup  = "Service Group"
	sheetRule          = "Rule"
)

// sheetTable wraps one worksheet with header-name column access.
type sheetTable struct {
	columns map[string]int
	rows    [][]string
}

func (t *sheetTable) cell(row []string, column string) string {
	idx, ok := t.columns[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func loadSheet(f *excelize.File, name string) (*sheetTable, error) {
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, errors.Errorf(errors.KindIngest, "missing %q sheet in Excel file", name)
	}
	table := &sheetTable{columns: make(map[string]int)}
	if len(rows) == 0 {
		return table, nil
	}
	for idx, header := range rows[0] {
		header = strings.TrimSpace(header)
		if header != "" {
			table.columns[header] = idx
		}
	}
	table.rows = rows[1:]
	return table, nil
}

// ParseExcel loads a rules workbook. The workbook carries four sheets:
// Address Object, Address Group, Service Group and Rule; a missing sheet
// is a hard error. Unparsable address rows demote to name-based objects.
func ParseExcel(path string, log *logging.Logger) (*Data, error) {
	if log == nil {
		log = logging.Discard()
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindIngest, "open Excel file %s", path)
	}
	defer f.Close()

	sheets := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		sheets[name] = true
	}
	for _, required := range []string{sheetAddressObject, sheetAddressGroup, sheetServiceGroup, sheetRule} {
		if !sheets[required] {
			return nil, errors.Errorf(errors.KindIngest, "missing %q sheet in Excel file", required)
		}
	}

	data := newData()

	addresses, err := loadSheet(f, sheetAddressObject)
	if err != nil {
		return nil, err
	}
	for _, row := range addresses.rows {
		name := addresses.cell(row, "Object Name")
		if name == "" {
			continue
		}
		addressType := addresses.cell(row, "Type")
		if addressType == "" {
			addressType = string(model.AddressSubnet)
		}
		first := addresses.cell(row, "Subnet/Start-IP")
		second := addresses.cell(row, "Mask/End-IP")

		var subnet, startIP, endIP string
		switch strings.ToLower(addressType) {
		case string(model.AddressSubnet):
			if first != "" && second != "" {
				subnet = first + "/" + second
			}
		case string(model.AddressRange):
			startIP, endIP = first, second
		}

		obj, err := ParseAddressObject(name, addressType, subnet, startIP, endIP)
		if err != nil {
			log.Warn("address parse error, demoting to name-based object",
				"name", name, "type", addressType, "error", err)
			obj, _ = ParseAddressObject(name, string(model.AddressFQDN), "", "", "")
		}
		data.Addresses.Objects[name] = obj
	}

	addressGroups, err := loadSheet(f, sheetAddressGroup)
	if err != nil {
		return nil, err
	}
	for _, row := range addressGroups.rows {
		name := addressGroups.cell(row, "Group Name")
		if name == "" {
			continue
		}
		data.Addresses.Groups[name] = model.AddressGroup{
			Name:    name,
			Members: splitCellMembers(addressGroups.cell(row, "Member")),
		}
	}

	serviceGroups, err := loadSheet(f, sheetServiceGroup)
	if err != nil {
		return nil, err
	}
	for _, row := range serviceGroups.rows {
		name := serviceGroups.cell(row, "Group Name")
		if name == "" {
			continue
		}
		data.Services.Groups[name] = model.ServiceGroup{
			Name:    name,
			Members: splitCellMembers(serviceGroups.cell(row, "Member")),
		}
	}

	rules, err := loadSheet(f, sheetRule)
	if err != nil {
		return nil, err
	}
	for _, row := range rules.rows {
		seqValue := rules.cell(row, "Seq")
		if seqValue == "" {
			continue
		}
		seq, err := strconv.Atoi(seqValue)
		if err != nil {
			return nil, errors.Errorf(errors.KindIngest, "invalid rule sequence: %s", seqValue)
		}
		id := rules.cell(row, "ID")
		if id == "" {
			id = seqValue
		}
		action := rules.cell(row, "Action")
		if action == "" {
			action = "deny"
		}
		data.Policies = append(data.Policies, model.PolicyRule{
			PolicyID:    id,
			Name:        id,
			Priority:    seq,
			Source:      splitCellMembers(rules.cell(row, "Source")),
			Destination: splitCellMembers(rules.cell(row, "Destination")),
			Services:    splitCellMembers(rules.cell(row, "Service")),
			Action:      action,
			Enabled:     strings.EqualFold(rules.cell(row, "Enable"), "true"),
			Schedule:    "always",
			Comment:     rules.cell(row, "Comments"),
		})
	}

	// Service references that never got their own definition row still
	// need a resolution target.
	for _, group := range data.Services.Groups {
		for _, member := range group.Members {
			registerServiceName(data.Services, member)
		}
	}

	finalize(data)
	return data, nil
}

// splitCellMembers splits member cells on newlines and commas.
func splitCellMembers(value string) []string {
	if value == "" {
		return nil
	}
	var members []string
	for _, line := range strings.Split(value, "\n") {
		for _, part := range strings.Split(line, ",") {
			member := strings.TrimSpace(part)
			if member != "" {
				members = append(members, member)
			}
		}
	}
	return members
}
