// Package testing prepares the process for tests that build application
// wiring. Importing it switches the binaries into test mode.
package testing

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

const (
	// TestModeEnv makes both binaries return before touching infrastructure.
	TestModeEnv = "BATCHFLOW_TEST_MODE"
	// JWTSecret is the signing secret test token services share.
	JWTSecret = "test-secret"
	// JWTIssuer matches the default JWT_ISSUER.
	JWTIssuer = "batchflow"
)

var once sync.Once

func init() {
	Setup()
}

// Setup sets test mode and fills required configuration the tests do not
// care about. Values already present in the environment win.
func Setup() {
	once.Do(func() {
		_ = os.Setenv(TestModeEnv, "1")
		if os.Getenv("JWT_SECRET") == "" {
			_ = os.Setenv("JWT_SECRET", JWTSecret)
		}
	})
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
