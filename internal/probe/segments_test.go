// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package probe

import (
	"strings"
	"testing"
)

func TestReadSegments(t *testing.T) {
	input := "Network Segment,GN,Site,Location\n10.0.0.5/24,g1,fab7,basement\n192.168.1.0/24,,,\n"
	records, err := readSegments(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readSegments() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	// Loose CIDR input is canonicalized to the network address.
	if records[0].Network.String() != "10.0.0.0/24" {
		t.Errorf("Network = %v, want 10.0.0.0/24", records[0].Network)
	}
	if records[0].Field("GN") != "g1" || records[0].Field("Site") != "fab7" || records[0].Field("Location") != "basement" {
		t.Errorf("carrier fields = %v", records[0].Fields)
	}
	if records[1].Field("GN") != "" {
		t.Errorf("empty carrier = %q, want empty", records[1].Field("GN"))
	}
}

func TestReadSegmentsMissingHeader(t *testing.T) {
	for _, input := range []string{"", "CIDR\n10.0.0.0/24\n"} {
		if _, err := readSegments(strings.NewReader(input)); err == nil {
			t.Errorf("readSegments(%q) expected error", input)
		}
	}
}

func TestReadSegmentsRejectsIPv6(t *testing.T) {
	input := "Network Segment\n2001:db8::/32\n"
	if _, err := readSegments(strings.NewReader(input)); err == nil {
		t.Error("readSegments with IPv6 row expected error")
	}
}
