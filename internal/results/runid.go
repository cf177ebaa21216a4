package results

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"time"
)

// RunInfo identifies a single evaluation run.
type RunInfo struct {
	// ID is the unique run identifier: ISO-8601 UTC timestamp plus a random
	// hex suffix, e.g. "2026-01-08T12:34:56Z-a3f2c1".
	ID string
	// DirName is the filesystem-safe variant used as the run directory name,
	// e.g. "2026-01-08_12-34-56Z-a3f2c1".
	DirName string
	// CreatedAt is the bare ISO-8601 timestamp, for sorting and filtering.
	CreatedAt string
}

// NewRunInfo generates run identifiers from the current UTC time with a
// 3-byte random suffix for uniqueness.
func NewRunInfo() RunInfo {
	return newRunInfoAt(time.Now().UTC())
}

func newRunInfoAt(now time.Time) RunInfo {
	b := make([]byte, 3)
	// rand.Read never fails on supported platforms.
	_, _ = rand.Read(b)
	suffix := hex.EncodeToString(b)
	created := now.Format("2006-01-02T15:04:05Z")
	return RunInfo{
		ID:        created + "-" + suffix,
		DirName:   now.Format("2006-01-02_15-04-05Z") + "-" + suffix,
		CreatedAt: created,
	}
}

var fsUnsafe = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFSName replaces characters that are unsafe in file or directory
// names on any supported platform with underscores.
func SanitizeFSName(name string) string {
	return fsUnsafe.ReplaceAllString(name, "_")
}
