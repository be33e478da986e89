// Package version holds the application version, overridable at build time
// with -ldflags "-X rollcall/internal/version.Version=x.y.z".
package version

// Version is the application version.
var Version = "1.0.0"
