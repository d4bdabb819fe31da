// Package testing switches the binary into test mode when imported by a test.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

// ModeEnv is read by the app runtime to skip network startup.
const ModeEnv = "USERDESK_TEST_MODE"

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv(ModeEnv, "1")
		if os.Getenv("DIRECTORY_BASE_URL") == "" {
			_ = os.Setenv("DIRECTORY_BASE_URL", "http://127.0.0.1:0")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain lets packages delegate their TestMain here.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
