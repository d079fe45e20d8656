package version

// Version is the engine version stamped into every published results file.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/guozhongyan/anxiousmonkey-backtests/internal/version.Version=1.2.3"
// The value "main" marks a development build.
var Version = "v0.4.0"

// GetVersion returns the current engine version.
func GetVersion() string {
	return Version
}
