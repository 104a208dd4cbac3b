package migration_test

import (
	"testing"

	"github.com/amp-labs/amp-uow/database"
	_ "github.com/amp-labs/amp-uow/database/drivers"
	"github.com/amp-labs/amp-uow/scope"
	"github.com/stretchr/testify/require"
)

func openFactory(t *testing.T) *database.SQLFactory {
	t.Helper()

	factory, err := database.Open(t.Context(), database.Config{
		Dialect: database.DialectSQLite,
		DSN:     ":memory:",
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = factory.Close() })

	return factory
}

func newProvider(t *testing.T) (*scope.Provider, *database.SQLFactory) {
	t.Helper()

	factory := openFactory(t)

	return scope.NewProvider(factory), factory
}

func tableExists(t *testing.T, factory *database.SQLFactory, name string) bool {
	t.Helper()

	var n int
	require.NoError(t, factory.DB().QueryRowContext(t.Context(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n))

	return n > 0
}

func countRows(t *testing.T, factory *database.SQLFactory, table string) int {
	t.Helper()

	var n int
	require.NoError(t, factory.DB().QueryRowContext(t.Context(), "SELECT COUNT(*) FROM "+table).Scan(&n))

	return n
}
