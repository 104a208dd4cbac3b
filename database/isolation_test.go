package database

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolationLevel_Weaker(t *testing.T) {
	t.Parallel()

	assert.True(t, ReadUncommitted.Weaker(ReadCommitted))
	assert.True(t, ReadCommitted.Weaker(Serializable))
	assert.True(t, Snapshot.Weaker(Serializable))
	assert.False(t, Serializable.Weaker(ReadCommitted))
	assert.False(t, ReadCommitted.Weaker(ReadCommitted))
	assert.False(t, Unspecified.Weaker(Serializable))
	assert.False(t, Serializable.Weaker(Unspecified))
}

func TestParseIsolationLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want IsolationLevel
	}{
		{"", Unspecified},
		{"read_committed", ReadCommitted},
		{"Read Committed", ReadCommitted},
		{"repeatable-read", RepeatableRead},
		{"SERIALIZABLE", Serializable},
		{"snapshot", Snapshot},
	}

	for _, tt := range tests {
		got, err := ParseIsolationLevel(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := ParseIsolationLevel("chaos")
	require.ErrorIs(t, err, ErrUnknownIsolationLevel)
}

func TestIsolationLevel_SQL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sql.LevelDefault, Unspecified.SQL())
	assert.Equal(t, sql.LevelReadCommitted, ReadCommitted.SQL())
	assert.Equal(t, sql.LevelSerializable, Serializable.SQL())
	assert.Equal(t, "repeatable_read", RepeatableRead.String())
	assert.Equal(t, "isolation(99)", IsolationLevel(99).String())
}

func TestDialect(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$2", DialectPostgres.Placeholder(2))
	assert.Equal(t, "?", DialectSQLite.Placeholder(2))

	d, err := ParseDialect("libsql")
	require.NoError(t, err)
	assert.Equal(t, DialectLibSQL, d)

	_, err = ParseDialect("oracle")
	require.ErrorIs(t, err, ErrUnknownDialect)
}
