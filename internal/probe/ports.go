// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package probe

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"grimm.is/flowsim/internal/errors"
	"grimm.is/flowsim/internal/model"
)

// PortSpec is one line of the ports file: a label plus a protocol/port
// probe.
type PortSpec struct {
	Label    string
	Protocol model.Protocol
	Port     int
}

// LoadPorts reads the line-oriented ports file. Blank lines are skipped;
// any malformed line is fatal.
func LoadPorts(path string) ([]PortSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "open ports file %s", path)
	}
	defer f.Close()
	specs, err := ParsePorts(f)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "ports file %s", path)
	}
	return specs, nil
}

// ParsePorts parses lines of the form "<label>,<port>/<proto>".
func ParsePorts(r io.Reader) ([]PortSpec, error) {
	var specs []PortSpec
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		label, value, ok := strings.Cut(line, ",")
		if !ok {
			return nil, errors.Errorf(errors.KindValidation, "invalid port line: %s", line)
		}
		portStr, protoStr, ok := strings.Cut(strings.TrimSpace(value), "/")
		if !ok {
			return nil, errors.Errorf(errors.KindValidation, "invalid port line: %s", line)
		}
		port, err := strconv.Atoi(strings.TrimSpace(portStr))
		if err != nil {
			return nil, errors.Errorf(errors.KindValidation, "invalid port: %s", portStr)
		}
		if port < 1 || port > 65535 {
			return nil, errors.Errorf(errors.KindValidation, "port out of range: %d", port)
		}
		var protocol model.Protocol
		switch strings.ToLower(strings.TrimSpace(protoStr)) {
		case "tcp":
			protocol = model.ProtocolTCP
		case "udp":
			protocol = model.ProtocolUDP
		default:
			return nil, errors.Errorf(errors.KindValidation, "unsupported protocol: %s", protoStr)
		}
		specs = append(specs, PortSpec{
			Label:    strings.TrimSpace(label),
			Protocol: protocol,
			Port:     port,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return specs, nil
}
