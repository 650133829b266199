// Package version exposes the pbicli build version.
package version

// Version is injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/rshade/pbicli/pkg/version.Version=v0.3.0"
//
//nolint:gochecknoglobals // Build-time injection target.
var Version = "dev"

// GetVersion returns the pbicli version string, falling back to "dev"
// when no version was injected at build time.
func GetVersion() string {
	if Version == "" {
		return "dev"
	}
	return Version
}
