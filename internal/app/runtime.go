package app

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const testModeEnv = "STAFFHUB_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

// detectTestMode reads the STAFFHUB_TEST_MODE flag.
func detectTestMode() {
	v := os.Getenv(testModeEnv)
	testModeFlag.Store(v == "1" || strings.EqualFold(v, "true"))
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}
