// Package version reports the webcamd build, stamped with -ldflags at release time.
package version

// These variables are set via ldflags during build
//
//nolint:gochecknoglobals // These are intentionally global for ldflags injection
var (
	version = "dev"
	buildID = "dev"
)

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// GetBuildID returns the current build ID
func GetBuildID() string {
	return buildID
}

// GetFullVersion is logged at startup and reported to the metrics resource.
func GetFullVersion() string {
	return version + " (build: " + buildID + ")"
}
