// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package probe turns the user's segment lists and port list into the
// probe stream the simulation driver consumes.
package probe

import (
	"encoding/csv"
	"io"
	"net/netip"
	"os"
	"strings"

	"grimm.is/flowsim/internal/errors"
	"grimm.is/flowsim/internal/netutil"
)

// SegmentColumn is the required header of segment CSV files.
const SegmentColumn = "Network Segment"

// Record is one row of a segment CSV: the parsed network plus every
// column passed through verbatim as carrier fields.
type Record struct {
	Network netip.Prefix
	Fields  map[string]string
}

// Field returns a carrier column, or "" when the column is absent.
func (r Record) Field(name string) string {
	return r.Fields[name]
}

// LoadSegments reads a segment CSV. Every row must carry a parsable IPv4
// CIDR in the Network Segment column; the stored network is
// canonicalized.
func LoadSegments(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "open segment CSV %s", path)
	}
	defer f.Close()
	records, err := readSegments(f)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "segment CSV %s", path)
	}
	return records, nil
}

func readSegments(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Errorf(errors.KindValidation, "missing required CSV header: %s", SegmentColumn)
	}
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(header))
	segmentIdx := -1
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
		if columns[i] == SegmentColumn {
			segmentIdx = i
		}
	}
	if segmentIdx < 0 {
		return nil, errors.Errorf(errors.KindValidation, "missing required CSV header: %s", SegmentColumn)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		fields := make(map[string]string, len(columns))
		for i, value := range row {
			if i >= len(columns) {
				break
			}
			fields[columns[i]] = strings.TrimSpace(value)
		}
		network, err := netutil.ParseIPv4Prefix(fields[SegmentColumn])
		if err != nil {
			return nil, err
		}
		records = append(records, Record{Network: network, Fields: fields})
	}
	return records, nil
}
