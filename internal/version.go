package internal

import (
	"fmt"
)

var (
	name      string = "VisualTK Integration"
	version   string = "v1.0.0"
	buildDate string = ""
	commit    string = ""
)

// Version returns the version string.
func Version() string {
	return fmt.Sprintf("%s %s", name, version)
}

// VersionVerbose return the verbose version string.
func VersionVerbose() string {
	return fmt.Sprintf("%s %s %s %s", name, version, buildDate, commit)
}
