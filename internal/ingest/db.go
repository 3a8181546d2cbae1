// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ingest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"grimm.is/flowsim/internal/errors"
	"grimm.is/flowsim/internal/logging"
	"grimm.is/flowsim/internal/model"
)

// DBConfig selects and parameterizes the rules database. Either the
// MariaDB fields or File must be set; File wins when both are present so
// a local snapshot can be analyzed without network access.
type DBConfig struct {
	User     string
	Password string
	Host     string
	Name     string

	// File is a SQLite snapshot of the same schema.
	File string

	// FabName filters every table on its fab_name column when set.
	FabName string
}

func (c DBConfig) open() (*sql.DB, error) {
	if c.File != "" {
		return sql.Open("sqlite", c.File)
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s", c.User, c.Password, c.Host, c.Name)
	return sql.Open("mysql", dsn)
}

// ParseDB loads the firewall tables (cfg_address, cfg_address_group,
// cfg_service_group, cfg_policy) into analyzer models. An unreachable
// database is a hard error.
func ParseDB(cfg DBConfig, log *logging.Logger) (*Data, error) {
	if log == nil {
		log = logging.Discard()
	}
	db, err := cfg.open()
	if err != nil {
		return nil, errors.Wrap(err, errors.KindUnavailable, "open rules database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, errors.KindUnavailable, "connect rules database")
	}

	data := newData()

	where := ""
	var args []any
	if cfg.FabName != "" {
		where = " WHERE fab_name = ?"
		args = []any{cfg.FabName}
	}

	if err := loadAddresses(db, data, where, args, log); err != nil {
		return nil, err
	}
	if err := loadAddressGroups(db, data, where, args); err != nil {
		return nil, err
	}
	if err := loadServiceGroups(db, data, where, args); err != nil {
		return nil, err
	}
	if err := loadPolicies(db, data, where, args); err != nil {
		return nil, err
	}

	// Group members referencing services that have no definition row.
	for _, group := range data.Services.Groups {
		for _, member := range group.Members {
			registerServiceName(data.Services, member)
		}
	}

	finalize(data)
	return data, nil
}

func loadAddresses(db *sql.DB, data *Data, where string, args []any, log *logging.Logger) error {
	rows, err := db.Query("SELECT object_name, address_type, subnet, start_ip, end_ip FROM cfg_address"+where, args...)
	if err != nil {
		return errors.Wrap(err, errors.KindIngest, "query cfg_address")
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var addressType, subnet, startIP, endIP sql.NullString
		if err := rows.Scan(&name, &addressType, &subnet, &startIP, &endIP); err != nil {
			return errors.Wrap(err, errors.KindIngest, "scan cfg_address")
		}
		// The all pseudo-object is owned by the analyzer.
		if strings.EqualFold(name, "all") {
			continue
		}
		obj, err := ParseAddressObject(name, addressType.String, subnet.String, startIP.String, endIP.String)
		if err != nil {
			log.Warn("address parse error, demoting to name-based object",
				"name", name, "type", addressType.String, "error", err)
			obj, _ = ParseAddressObject(name, string(model.AddressFQDN), "", "", "")
		}
		data.Addresses.Objects[name] = obj
	}
	return rows.Err()
}

func loadAddressGroups(db *sql.DB, data *Data, where string, args []any) error {
	rows, err := db.Query("SELECT group_name, members FROM cfg_address_group"+where, args...)
	if err != nil {
		return errors.Wrap(err, errors.KindIngest, "query cfg_address_group")
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var members sql.NullString
		if err := rows.Scan(&name, &members); err != nil {
			return errors.Wrap(err, errors.KindIngest, "scan cfg_address_group")
		}
		parsed, err := parseJSONArray(members.String)
		if err != nil {
			return err
		}
		data.Addresses.Groups[name] = model.AddressGroup{Name: name, Members: parsed}
	}
	return rows.Err()
}

func loadServiceGroups(db *sql.DB, data *Data, where string, args []any) error {
	rows, err := db.Query("SELECT group_name, members FROM cfg_service_group"+where, args...)
	if err != nil {
		return errors.Wrap(err, errors.KindIngest, "query cfg_service_group")
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var members sql.NullString
		if err := rows.Scan(&name, &members); err != nil {
			return errors.Wrap(err, errors.KindIngest, "scan cfg_service_group")
		}
		parsed, err := parseJSONArray(members.String)
		if err != nil {
			return err
		}
		data.Services.Groups[name] = model.ServiceGroup{Name: name, Members: parsed}
	}
	return rows.Err()
}

func loadPolicies(db *sql.DB, data *Data, where string, args []any) error {
	rows, err := db.Query(
		"SELECT priority, policy_id, src_objects, dst_objects, service_objects, action, is_enabled, comments FROM cfg_policy"+where,
		args...)
	if err != nil {
		return errors.Wrap(err, errors.KindIngest, "query cfg_policy")
	}
	defer rows.Close()
	for rows.Next() {
		var priority int
		var policyID string
		var src, dst, svc, action, comments sql.NullString
		var enabled bool
		if err := rows.Scan(&priority, &policyID, &src, &dst, &svc, &action, &enabled, &comments); err != nil {
			return errors.Wrap(err, errors.KindIngest, "scan cfg_policy")
		}
		sources, err := parseJSONArray(src.String)
		if err != nil {
			return err
		}
		destinations, err := parseJSONArray(dst.String)
		if err != nil {
			return err
		}
		services, err := parseServiceColumn(svc)
		if err != nil {
			return err
		}
		for _, name := range services {
			registerServiceName(data.Services, name)
		}
		act := action.String
		if act == "" {
			act = "deny"
		}
		data.Policies = append(data.Policies, model.PolicyRule{
			PolicyID:    policyID,
			Name:        policyID,
			Priority:    priority,
			Source:      sources,
			Destination: destinations,
			Services:    services,
			Action:      act,
			Enabled:     enabled,
			Schedule:    "always",
			Comment:     comments.String,
		})
	}
	return rows.Err()
}

// parseServiceColumn accepts either a JSON array or a bare service name;
// both spellings exist in real exports.
func parseServiceColumn(value sql.NullString) ([]string, error) {
	trimmed := strings.TrimSpace(value.String)
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		return parseJSONArray(trimmed)
	}
	return []string{trimmed}, nil
}

func parseJSONArray(value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return nil, errors.Wrapf(err, errors.KindIngest, "invalid JSON array: %s", value)
	}
	return items, nil
}
