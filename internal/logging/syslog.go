// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// SyslogConfig describes an optional remote syslog transport for log
// records.
type SyslogConfig struct {
	Enabled  bool   `hcl:"enabled,optional"`
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	Protocol string `hcl:"protocol,optional"` // udp or tcp
	Tag      string `hcl:"tag,optional"`
	Facility int    `hcl:"facility,optional"`
}

// DefaultSyslogConfig returns the disabled default configuration.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "flowsim",
		Facility: 1,
	}
}

// SyslogWriter sends each Write as a single RFC 3164 style message.
type SyslogWriter struct {
	mu   sync.Mutex
	conn net.Conn
	tag  string
	pri  int
}

// NewSyslogWriter connects to the configured syslog server. Host is
// required; port, protocol and tag fall back to the defaults.
func NewSyslogWriter(cfg SyslogConfig) (*SyslogWriter, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("syslog host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = "flowsim"
	}
	if cfg.Facility == 0 {
		cfg.Facility = 1
	}

	conn, err := net.DialTimeout(cfg.Protocol, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect syslog %s://%s:%d: %w", cfg.Protocol, cfg.Host, cfg.Port, err)
	}
	return &SyslogWriter{
		conn: conn,
		tag:  cfg.Tag,
		// Severity "notice" (5) within the configured facility.
		pri: cfg.Facility*8 + 5,
	}, nil
}

// Write implements io.Writer.
func (w *SyslogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := fmt.Sprintf("<%d>%s %s: %s",
		w.pri,
		time.Now().Format(time.Stamp),
		w.tag,
		strings.TrimRight(string(p), "\n"),
	)
	if _, err := w.conn.Write([]byte(msg)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close releases the connection.
func (w *SyslogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Close()
}
