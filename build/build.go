// Package build describes the binary that is running. Release builds inject
// the description as JSON through -ldflags; other builds fall back to the
// module data the Go toolchain records.
package build

import (
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"strings"

	"facette.io/natsort"
)

// Info describes a build.
type Info struct {
	Version      string            `json:"version"`
	GitCommit    string            `json:"git_commit"` //nolint:tagliatelle
	GitDate      string            `json:"git_date"`   //nolint:tagliatelle
	BuildTime    string            `json:"build_time"` //nolint:tagliatelle
	GoVersion    string            `json:"go_version"` //nolint:tagliatelle
	Dependencies map[string]string `json:"dependencies"`
}

// Parse decodes injected build info. It returns false for an empty input,
// "{}", or JSON that does not decode.
func Parse(js string) (*Info, bool) {
	js = strings.TrimSpace(js)
	if js == "" || js == "{}" {
		return nil, false
	}

	var info Info

	if err := json.Unmarshal([]byte(js), &info); err != nil {
		slog.Warn("Failed to parse build info from JSON",
			"data", js,
			"error", err)

		return nil, false
	}

	return &info, true
}

// Current returns the injected info when it parses and the toolchain's
// record of the binary otherwise. The result is never nil.
func Current(injected string) *Info {
	if info, ok := Parse(injected); ok {
		return info
	}

	info := &Info{Version: "(devel)"}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	return fromBuildInfo(bi)
}

func fromBuildInfo(bi *debug.BuildInfo) *Info {
	info := &Info{
		Version:      bi.Main.Version,
		GoVersion:    bi.GoVersion,
		Dependencies: make(map[string]string, len(bi.Deps)),
	}

	if info.Version == "" {
		info.Version = "(devel)"
	}

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.GitCommit = setting.Value
		case "vcs.time":
			info.GitDate = setting.Value
		}
	}

	for _, dep := range bi.Deps {
		if dep.Replace != nil {
			dep = dep.Replace
		}

		info.Dependencies[dep.Path] = dep.Version
	}

	return info
}

// DependencyPaths returns the module paths of the dependencies in natural
// order.
func (i *Info) DependencyPaths() []string {
	paths := make([]string, 0, len(i.Dependencies))
	for path := range i.Dependencies {
		paths = append(paths, path)
	}

	natsort.Sort(paths)

	return paths
}
