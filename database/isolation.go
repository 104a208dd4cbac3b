package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownIsolationLevel is returned by ParseIsolationLevel.
var ErrUnknownIsolationLevel = errors.New("unknown isolation level")

// IsolationLevel is a transaction isolation level. Levels are ordered from
// weakest to strongest, Unspecified meaning "inherit or use the default".
type IsolationLevel int

const (
	Unspecified IsolationLevel = iota
	ReadUncommitted
	ReadCommitted
	RepeatableRead
	Snapshot
	Serializable
)

var isolationNames = map[IsolationLevel]string{ //nolint:gochecknoglobals
	Unspecified:     "unspecified",
	ReadUncommitted: "read_uncommitted",
	ReadCommitted:   "read_committed",
	RepeatableRead:  "repeatable_read",
	Snapshot:        "snapshot",
	Serializable:    "serializable",
}

func (l IsolationLevel) String() string {
	if name, ok := isolationNames[l]; ok {
		return name
	}

	return fmt.Sprintf("isolation(%d)", int(l))
}

// Weaker reports whether l provides less isolation than other.
// Unspecified is never weaker than anything.
func (l IsolationLevel) Weaker(other IsolationLevel) bool {
	if l == Unspecified || other == Unspecified {
		return false
	}

	return l < other
}

// SQL converts the level to its database/sql counterpart.
func (l IsolationLevel) SQL() sql.IsolationLevel {
	switch l {
	case ReadUncommitted:
		return sql.LevelReadUncommitted
	case ReadCommitted:
		return sql.LevelReadCommitted
	case RepeatableRead:
		return sql.LevelRepeatableRead
	case Snapshot:
		return sql.LevelSnapshot
	case Serializable:
		return sql.LevelSerializable
	case Unspecified:
		return sql.LevelDefault
	default:
		return sql.LevelDefault
	}
}

// ParseIsolationLevel accepts the names produced by String, case-insensitively,
// with spaces or dashes in place of underscores.
func ParseIsolationLevel(raw string) (IsolationLevel, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)

	if norm == "" {
		return Unspecified, nil
	}

	for level, name := range isolationNames {
		if name == norm {
			return level, nil
		}
	}

	return Unspecified, fmt.Errorf("%w: %q", ErrUnknownIsolationLevel, raw)
}
