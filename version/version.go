package version

// set via ldflags during release builds
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var FullVersion = Version + " (" + Commit + ", " + Date + ")"
