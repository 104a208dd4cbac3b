// Package tests provides helpers for tests that run scopes. Each test gets a
// context carrying a unique test id, the test name, a fresh ambient chain and
// a logger that writes through testing.T.
//
// Example usage:
//
//	func TestMyFeature(t *testing.T) {
//	    ctx := tests.GetUniqueContext(t)
//	    err := scope.Do(ctx, provider, func(ctx context.Context, s *scope.Scope) error {
//	        ...
//	    })
//	}
package tests

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/amp-labs/amp-uow/ambient"
	"github.com/amp-labs/amp-uow/contexts"
	"github.com/amp-labs/amp-uow/logger"
	"github.com/google/uuid"
	"github.com/neilotoole/slogt"
)

// Info identifies one test run.
type Info struct {
	ID   string
	Name string
}

var infoKey = contexts.NewKey[Info]("tests.info") //nolint:gochecknoglobals

// GetUniqueContext derives a context from t.Context() carrying a unique test
// id ("test-" followed by a UUID), the test name, an empty ambient chain and
// a slogt logger bound to t.
func GetUniqueContext(t *testing.T) context.Context {
	t.Helper()

	ctx := infoKey.With(t.Context(), Info{
		ID:   "test-" + uuid.New().String(),
		Name: t.Name(),
	})

	ctx = logger.WithLogger(ctx, slogt.New(t))

	return ambient.NewChain(ctx)
}

// GetTestInfo returns the test metadata stored by GetUniqueContext.
func GetTestInfo(ctx context.Context) (Info, bool) {
	return infoKey.Get(ctx)
}

// CheckSkipped skips the test when the boolean environment variable envKey is
// true. defaultValue applies when the variable is unset or unparsable.
func CheckSkipped(t *testing.T, envKey string, defaultValue ...bool) {
	t.Helper()

	skip := len(defaultValue) > 0 && defaultValue[0]

	if raw, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			skip = parsed
		}
	}

	if skip {
		t.Skipf("Skipping test because of environment variable: %s", envKey)
	}
}
