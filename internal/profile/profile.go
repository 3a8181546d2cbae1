// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package profile loads the optional HCL run profile. A profile supplies
// defaults for flags the operator did not set explicitly; flags always
// win.
package profile

import (
	"github.com/hashicorp/hcl/v2/hclsimple"

	"grimm.is/flowsim/internal/errors"
	"grimm.is/flowsim/internal/logging"
)

// CurrentSchemaVersion is the profile schema understood by this build.
const CurrentSchemaVersion = "1.0"

// LogConfig mirrors the --log-level / --log-file flags.
type LogConfig struct {
	Level string `hcl:"level,optional"`
	File  string `hcl:"file,optional"`
}

// Profile is the decoded run profile.
type Profile struct {
	SchemaVersion string `hcl:"schema_version,optional"`

	MatchMode  string `hcl:"match_mode,optional"`
	MaxHosts   int    `hcl:"max_hosts,optional"`
	Workers    *int   `hcl:"workers,optional"`
	MetricsOut string `hcl:"metrics_out,optional"`

	Log    *LogConfig            `hcl:"log,block"`
	Syslog *logging.SyslogConfig `hcl:"syslog,block"`
}

// Load reads and validates a profile file.
func Load(path string) (*Profile, error) {
	var p Profile
	if err := hclsimple.DecodeFile(path, nil, &p); err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "load profile %s", path)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if p.SchemaVersion != "" && p.SchemaVersion != CurrentSchemaVersion {
		return errors.Errorf(errors.KindValidation, "unsupported profile schema version: %s", p.SchemaVersion)
	}
	if p.MaxHosts < 0 {
		return errors.New(errors.KindValidation, "max_hosts must be a positive integer")
	}
	if p.Workers != nil && *p.Workers < 0 {
		return errors.New(errors.KindValidation, "workers must be zero or a positive integer")
	}
	if p.Log != nil && p.Log.Level != "" {
		if _, err := logging.ParseLevel(p.Log.Level); err != nil {
			return errors.Wrap(err, errors.KindValidation, "profile log level")
		}
	}
	return nil
}
