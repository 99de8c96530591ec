// Package version provides build-time version information for the application.
package version

// Set with -ldflags "-X coachapp/internal/version.Version=..." at build time.
var (
	Version   = "dev"
	Commit    = "dev"
	BuildTime = "unknown"
)

// Info is the build identity a service reports on /v1/version
type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// For returns the build identity of the named service
func For(service string) Info {
	return Info{
		Service:   service,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
	}
}

// IsRelease reports whether the binary was stamped at build time
func (i Info) IsRelease() bool {
	return i.Version != "dev"
}
