// Package version exposes the build information stamped into the binary.
package version

// Overridden at build time:
//
//	go build -ldflags "-X github.com/animal-health-networks/petcert/internal/version.version=v1.2.3 ..."
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
}

// Get returns the build information for this binary.
func Get() Info {
	return Info{
		Version:   version,
		GitCommit: gitCommit,
		BuildDate: buildDate,
	}
}
