// Package buildinfo carries the build metadata reported on /api/status.
package buildinfo

import "time"

// Set via -ldflags "-X github.com/xelth-com/eckgrid/internal/buildinfo.CommitHash=..."
var (
	BuildTime  string // when the binary was compiled
	CommitTime string // time of the last commit
	CommitHash string // short commit hash
)

// StartTime is when the API process came up
var StartTime = time.Now().UTC().Format(time.RFC3339)
