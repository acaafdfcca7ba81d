// Package buildconfig exposes version information set at link time:
//
//	go build -ldflags "-X github.com/Harshitk-cp/factlearn/internal/buildconfig.version=v1.2.0 -X github.com/Harshitk-cp/factlearn/internal/buildconfig.commit=$(git rev-parse --short HEAD)"
package buildconfig

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// VersionInfo returns the fields reported by the health endpoint.
func VersionInfo() map[string]string {
	return map[string]string{
		"service": "factlearn",
		"version": version,
		"commit":  commit,
	}
}
