package version

import (
	"fmt"
	"runtime"
)

// Set through -ldflags "-X analog-exit/internal/version.Version=..." at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info renders build metadata, one field per line.
func Info() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s\ngo: %s\n", Version, Commit, BuildDate, runtime.Version())
}

// Short is the one-line form used by --version.
func Short() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
