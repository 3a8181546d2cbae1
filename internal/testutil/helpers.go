// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package testutil

import (
	"os"
	"testing"
)

// RequireRulesDB skips the test unless FLOWSIM_DB_TEST carries a MariaDB
// DSN in user:password@host/dbname form. This keeps tests that need a
// live rules database out of the default run.
func RequireRulesDB(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("FLOWSIM_DB_TEST")
	if dsn == "" {
		t.Skip("Skipping test: requires FLOWSIM_DB_TEST environment")
	}
	return dsn
}
