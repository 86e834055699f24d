// Package guard flips the application into test mode when imported,
// keeping package tests from touching external services.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("MADERIA_TEST_MODE") == "" {
			_ = os.Setenv("MADERIA_TEST_MODE", "1")
		}
	})
}
