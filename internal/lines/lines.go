// Package lines reads newline-delimited input files such as tokens.txt and
// proxy.txt.
package lines

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/centic-tools/centic-ctl/internal/logging"
)

// Read returns the trimmed, non-empty lines of the file at path.
// Lines starting with '#' are treated as comments. A read failure is
// logged and yields an empty slice.
func Read(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Error("failed to read file", "path", path, "error", err)
		return []string{}
	}
	return Parse(string(data))
}

// ReadOptional is like Read but only logs at debug level when the file does
// not exist.
func ReadOptional(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Debug("optional file not found", "path", path)
		} else {
			logging.Error("failed to read file", "path", path, "error", err)
		}
		return []string{}
	}
	return Parse(string(data))
}

// Parse splits content on line breaks, trims whitespace and drops empty and
// comment lines.
func Parse(content string) []string {
	out := []string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
