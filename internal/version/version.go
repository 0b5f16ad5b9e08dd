// Package version carries build metadata injected with -ldflags, e.g.
// -X incgraph/internal/version.Version=1.4.0.
package version

import "strings"

var (
	Version   = "dev"
	GitCommit = ""
	Built     = ""
)

type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	Built     string `json:"built,omitempty"`
}

func Get() Info {
	return Info{
		Version:   strings.TrimSpace(Version),
		GitCommit: strings.TrimSpace(GitCommit),
		Built:     strings.TrimSpace(Built),
	}
}

// String renders "1.4.0 (abc123, 2026-01-11T12:34:56Z)", omitting unknown parts.
func (info Info) String() string {
	text := info.Version
	if text == "" {
		text = "dev"
	}
	details := []string{}
	if info.GitCommit != "" {
		details = append(details, info.GitCommit)
	}
	if info.Built != "" {
		details = append(details, info.Built)
	}
	if len(details) > 0 {
		text += " (" + strings.Join(details, ", ") + ")"
	}
	return text
}
