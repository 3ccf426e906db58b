package session

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	// VideoExt is appended to every saved video.
	VideoExt = ".mp4"

	// TimestampLayout is the filesystem-safe, second-precision UTC prefix
	// of timestamped filenames (an ISO-8601 instant with ':' and '.'
	// replaced by '-').
	TimestampLayout = "2006-01-02T15-04-05"

	// UnknownLabel names videos whose spec path is unavailable.
	UnknownLabel = "unknown"
)

// LabelFromSpec derives the spec label from a spec file path: the base
// name with its final extension removed. Paths that yield nothing usable
// map to UnknownLabel.
func LabelFromSpec(specPath string) string {
	p := strings.TrimSpace(specPath)
	if p == "" {
		return UnknownLabel
	}

	base := filepath.Base(filepath.FromSlash(p))
	label := strings.TrimSuffix(base, filepath.Ext(base))
	if label == "" || label == "." || label == string(filepath.Separator) {
		return UnknownLabel
	}
	return label
}

// Filename builds the video file name for label. With useTimestamp the
// name is "<TimestampLayout>_<label>.mp4" using at in UTC, otherwise
// "<label>.mp4".
func Filename(label string, useTimestamp bool, at time.Time) string {
	if label == "" {
		label = UnknownLabel
	}
	if useTimestamp {
		return at.UTC().Format(TimestampLayout) + "_" + label + VideoExt
	}
	return label + VideoExt
}

// JoinOutput joins the output directory and a filename with '/', keeping
// the directory exactly as configured (no cleaning), so "./videos" yields
// "./videos/<name>".
func JoinOutput(dir, filename string) string {
	if dir == "" {
		return filename
	}
	return strings.TrimRight(dir, `/\`) + "/" + filename
}
