// Package version reports which build of conductor is running.
package version

import "runtime/debug"

// AppName appears in log lines, the HTTP user agent, and the clientInfo of
// the MCP initialize handshake.
const AppName = "conductor"

// commit may be injected with -ldflags for builds without VCS metadata,
// such as container image builds.
var commit string

// GitCommit is the short revision this binary was built from, "dev" when
// nothing is known (go test, builds outside a checkout).
var GitCommit = resolveCommit()

func resolveCommit() string {
	rev := commit
	if rev == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					rev = s.Value
					break
				}
			}
		}
	}
	switch {
	case rev == "":
		return "dev"
	case len(rev) > 8:
		return rev[:8]
	default:
		return rev
	}
}

// Full returns "conductor/<commit>".
func Full() string {
	return AppName + "/" + GitCommit
}
