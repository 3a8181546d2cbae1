// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/flowsim/internal/model"
)

const fortigateSample = `
# sample export
config firewall address
    edit "lan-net"
        set type ipmask
        set subnet 10.0.0.0 255.255.255.0
    next
    edit "dmz-range"
        set type iprange
        set start-ip 172.16.0.10
        set end-ip 172.16.0.20
    next
    edit "portal"
        set type fqdn
        set fqdn "portal.example.com"
    next
    edit "broken"
        set type ipmask
        set subnet not-an-ip
    next
end
config firewall addrgrp
    edit "internal"
        set member "lan-net" "dmz-range"
    next
end
config firewall service custom
    edit "web-svc"
        set tcp-portrange 80 443
    next
    edit "no-ports"
        set comment "placeholder"
    next
end
config firewall service group
    edit "public"
        set member "web-svc" "HTTPS" "tcp_8443"
    next
end
config firewall policy
    edit 10
        set name "allow-web"
        set srcaddr "internal"
        set dstaddr "all"
        set service "public"
        set action accept
        set schedule "always"
        set status enable
    next
    edit 2
        set name "deny-guests"
        set srcaddr "all"
        set dstaddr "all"
        set service "ALL"
        set action deny
        set status disable
    next
end
`

func TestParseFortiGate(t *testing.T) {
	data, err := ParseFortiGate(strings.NewReader(fortigateSample), nil)
	require.NoError(t, err)

	lan := data.Addresses.Objects["lan-net"]
	assert.Equal(t, model.AddressSubnet, lan.Type)
	assert.Equal(t, "10.0.0.0/24", lan.Subnet.String())

	dmz := data.Addresses.Objects["dmz-range"]
	assert.Equal(t, model.AddressRange, dmz.Type)
	assert.Equal(t, "172.16.0.10", dmz.Start.String())
	assert.Equal(t, "172.16.0.20", dmz.End.String())

	assert.Equal(t, model.AddressFQDN, data.Addresses.Objects["portal"].Type)

	// Unparsable addresses demote to name-based rather than failing.
	assert.Equal(t, model.AddressFQDN, data.Addresses.Objects["broken"].Type)

	group := data.Addresses.Groups["internal"]
	assert.Equal(t, []string{"lan-net", "dmz-range"}, group.Members)

	web := data.Services.Services["web-svc"]
	require.Len(t, web.Entries, 2)
	assert.Equal(t, model.ProtocolTCP, web.Entries[0].Protocol)
	assert.Equal(t, 80, web.Entries[0].StartPort)
	assert.Equal(t, 443, web.Entries[1].StartPort)

	// A custom service without parsable ranges matches anything.
	assert.True(t, data.Services.Services["no-ports"].Entries[0].IsAny())

	// Group members that only appear by reference get registered: the
	// tcp_ spelling from its own syntax, HTTPS from the catalogue.
	tcp8443 := data.Services.Services["tcp_8443"]
	require.Len(t, tcp8443.Entries, 1)
	assert.Equal(t, 8443, tcp8443.Entries[0].StartPort)
	https := data.Services.Services["HTTPS"]
	require.Len(t, https.Entries, 1)
	assert.Equal(t, 443, https.Entries[0].StartPort)

	// Policies sort by ascending priority (numeric edit id).
	require.Len(t, data.Policies, 2)
	assert.Equal(t, "2", data.Policies[0].PolicyID)
	assert.False(t, data.Policies[0].Enabled)
	assert.Equal(t, "10", data.Policies[1].PolicyID)
	assert.True(t, data.Policies[1].Enabled)
	assert.Equal(t, "allow-web", data.Policies[1].Name)
	assert.Equal(t, "always", data.Policies[1].Schedule)
	assert.Equal(t, []string{"internal"}, data.Policies[1].Source)

	// Pseudo objects and the catalogue are merged in.
	all := data.Addresses.Objects["all"]
	assert.Equal(t, "0.0.0.0/0", all.Subnet.String())
	assert.True(t, data.Services.Services["ALL"].Entries[0].IsAny())
	_, hasDNS := data.Services.Services["DNS"]
	assert.True(t, hasDNS)
}

func TestParseFortiGateUnset(t *testing.T) {
	input := `
config firewall address
    edit "obj"
        set type ipmask
        set subnet 10.0.0.0 255.255.255.0
        unset subnet
    next
end
`
	data, err := ParseFortiGate(strings.NewReader(input), nil)
	require.NoError(t, err)
	// With the subnet unset the object cannot be parsed and demotes.
	assert.Equal(t, model.AddressFQDN, data.Addresses.Objects["obj"].Type)
}

func TestParseFortiGateRepeatedSetAccumulates(t *testing.T) {
	input := `
config firewall service custom
    edit "multi"
        set tcp-portrange 80
        set tcp-portrange 8080-8081
    next
end
`
	data, err := ParseFortiGate(strings.NewReader(input), nil)
	require.NoError(t, err)
	multi := data.Services.Services["multi"]
	require.Len(t, multi.Entries, 2)
	assert.Equal(t, 80, multi.Entries[0].StartPort)
	assert.Equal(t, 8080, multi.Entries[1].StartPort)
	assert.Equal(t, 8081, multi.Entries[1].EndPort)
}
