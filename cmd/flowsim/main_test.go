// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"testing"

	"grimm.is/flowsim/internal/errors"
	"grimm.is/flowsim/internal/profile"
)

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags([]string{})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.matchMode != "segment" {
		t.Errorf("matchMode = %q, want segment", opts.matchMode)
	}
	if opts.maxHosts != 256 {
		t.Errorf("maxHosts = %d, want 256", opts.maxHosts)
	}
	if opts.workers != 0 {
		t.Errorf("workers = %d, want 0 (auto)", opts.workers)
	}
	if opts.logLevel != "info" {
		t.Errorf("logLevel = %q, want info", opts.logLevel)
	}
}

func TestApplyProfileFillsGapsOnly(t *testing.T) {
	opts, err := parseFlags([]string{"--match-mode", "fuzzy"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}

	workers := 4
	applyProfile(opts, &profile.Profile{
		MatchMode: "expand",
		MaxHosts:  64,
		Workers:   &workers,
		Log:       &profile.LogConfig{Level: "debug"},
	})

	// The explicit flag wins over the profile.
	if opts.matchMode != "fuzzy" {
		t.Errorf("matchMode = %q, want fuzzy (explicit flag)", opts.matchMode)
	}
	// Unset flags take profile values.
	if opts.maxHosts != 64 {
		t.Errorf("maxHosts = %d, want 64 (from profile)", opts.maxHosts)
	}
	if opts.workers != 4 {
		t.Errorf("workers = %d, want 4 (from profile)", opts.workers)
	}
	if opts.logLevel != "debug" {
		t.Errorf("logLevel = %q, want debug (from profile)", opts.logLevel)
	}
}

func TestLoadRulesRequiresExactlyOneSource(t *testing.T) {
	cases := [][]string{
		{},
		{"--config", "rules.conf", "--excel", "rules.xlsx"},
		{"--config", "rules.conf", "--db-file", "rules.db"},
	}
	for _, args := range cases {
		opts, err := parseFlags(args)
		if err != nil {
			t.Fatalf("parseFlags(%v) error = %v", args, err)
		}
		_, err = loadRules(opts, nil)
		if err == nil {
			t.Errorf("loadRules(%v) expected error", args)
			continue
		}
		if errors.GetKind(err) != errors.KindValidation {
			t.Errorf("loadRules(%v) kind = %v, want validation", args, errors.GetKind(err))
		}
	}
}

func TestLoadRulesPartialDBFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--db-user", "analyst", "--db-host", "db.example.com"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	_, err = loadRules(opts, nil)
	if err == nil {
		t.Fatal("loadRules with partial database flags expected error")
	}
	if errors.GetKind(err) != errors.KindValidation {
		t.Errorf("kind = %v, want validation", errors.GetKind(err))
	}
}
