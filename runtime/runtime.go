package runtime

var (
	// Version is set at build time with -ldflags
	Version = "0.0.0-dev"
	// GitCommit is set at build time with -ldflags
	GitCommit = "none"
	// Timestamp is set at build time with -ldflags
	Timestamp = "unknown"
)
