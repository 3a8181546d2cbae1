// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/flowsim/internal/testutil"
)

// TestParseDBLive exercises the MariaDB path against a real database.
// It only runs when FLOWSIM_DB_TEST is set to user:password@host/dbname.
func TestParseDBLive(t *testing.T) {
	dsn := testutil.RequireRulesDB(t)

	credentials, location, ok := strings.Cut(dsn, "@")
	require.True(t, ok, "FLOWSIM_DB_TEST must be user:password@host/dbname")
	user, password, ok := strings.Cut(credentials, ":")
	require.True(t, ok, "FLOWSIM_DB_TEST must be user:password@host/dbname")
	host, name, ok := strings.Cut(location, "/")
	require.True(t, ok, "FLOWSIM_DB_TEST must be user:password@host/dbname")

	data, err := ParseDB(DBConfig{User: user, Password: password, Host: host, Name: name}, nil)
	require.NoError(t, err)
	require.NotNil(t, data)

	// The adapter contract holds regardless of table contents.
	require.Contains(t, data.Addresses.Objects, "all")
	require.Contains(t, data.Services.Services, "ALL")
	for i := 1; i < len(data.Policies); i++ {
		require.LessOrEqual(t, data.Policies[i-1].Priority, data.Policies[i].Priority)
	}
}
