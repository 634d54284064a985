package version

// Version is the current version of the milan CLI.
// Overridable at build time:
//
//	go build -ldflags="-X 'github.com/jindalujjwal0720/milan/internal/version.Version=v1.0.0'"
var Version = "dev"
