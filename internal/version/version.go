package version

// Version is the CLI version, overridden at build time with
// -ldflags "-X github.com/hashicorp-forge/peopledoc/internal/version.Version=...".
var Version = "0.1.0-dev"
