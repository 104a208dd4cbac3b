package build

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		info, ok := Parse(`{
			"version": "v1.4.0",
			"git_commit": "abc123",
			"git_date": "2026-01-02",
			"build_time": "2026-01-02T12:00:00Z",
			"go_version": "go1.25.5",
			"dependencies": {"github.com/spf13/cobra": "v1.10.1"}
		}`)

		require.True(t, ok)
		assert.Equal(t, "v1.4.0", info.Version)
		assert.Equal(t, "abc123", info.GitCommit)
		assert.Equal(t, "2026-01-02", info.GitDate)
		assert.Equal(t, "2026-01-02T12:00:00Z", info.BuildTime)
		assert.Equal(t, "go1.25.5", info.GoVersion)
		assert.Equal(t, map[string]string{"github.com/spf13/cobra": "v1.10.1"}, info.Dependencies)
	})

	for name, input := range map[string]string{
		"empty":   "",
		"blank":   "  ",
		"no keys": "{}",
		"invalid": "{not json",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			info, ok := Parse(input)
			assert.False(t, ok)
			assert.Nil(t, info)
		})
	}
}

func TestCurrent(t *testing.T) {
	t.Parallel()

	info := Current(`{"version": "v2.0.0"}`)
	assert.Equal(t, "v2.0.0", info.Version)

	info = Current("")
	require.NotNil(t, info)
	assert.NotEmpty(t, info.Version)
}

func TestFromBuildInfo(t *testing.T) {
	t.Parallel()

	info := fromBuildInfo(&debug.BuildInfo{
		GoVersion: "go1.25.0",
		Deps: []*debug.Module{
			{Path: "github.com/spf13/cobra", Version: "v1.10.1"},
			{Path: "github.com/lib/pq", Version: "v1.10.9"},
			{
				Path:    "github.com/old/fork",
				Version: "v0.1.0",
				Replace: &debug.Module{Path: "github.com/new/fork", Version: "v0.2.0"},
			},
		},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "deadbeef"},
			{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
		},
	})

	assert.Equal(t, "(devel)", info.Version)
	assert.Equal(t, "go1.25.0", info.GoVersion)
	assert.Equal(t, "deadbeef", info.GitCommit)
	assert.Equal(t, "2026-03-04T05:06:07Z", info.GitDate)
	assert.Equal(t, "v0.2.0", info.Dependencies["github.com/new/fork"])
	assert.Equal(t, []string{
		"github.com/lib/pq",
		"github.com/new/fork",
		"github.com/spf13/cobra",
	}, info.DependencyPaths())
}
