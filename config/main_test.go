package config

import (
	"fmt"
	"os"
	"testing"
)

// TestMain guards the config package tests. Several of them rewrite
// process environment variables and the global database handle, so
// refuse to run outside the test environment.
func TestMain(m *testing.M) {
	env := os.Getenv("GO_ENV")
	if env != "test" {
		fmt.Fprintf(os.Stderr,
			"SAFETY CHECK FAILED: config tests must run with GO_ENV=test (current GO_ENV=%q).\n"+
				"Run them as: GO_ENV=test go test ./...\n", env)
		os.Exit(1)
	}

	os.Exit(m.Run())
}
