// Package guard flips binaries into test mode. Import it for side effects
// from tests that touch code paths which would otherwise dial Postgres or Redis.
package guard

import (
	"os"
	"sync"
)

// EnvVar is the flag read by app.InTestMode.
const EnvVar = "STAFFHUB_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(EnvVar) == "" {
			_ = os.Setenv(EnvVar, "1")
		}
	})
}
