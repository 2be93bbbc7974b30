// Package export writes gitversion build information to files, consoles and
// CI pipelines.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/jaxxstorm/gitversion"
)

const (
	// DefaultPropertiesFile is where the CLI writes the properties file
	DefaultPropertiesFile = "build/resources/main/gitVersion.properties"

	// DefaultVersionFile is where the CLI writes the version file
	DefaultVersionFile = "build/VERSION"
)

// Properties renders info as key=value lines. Absent values are empty.
func Properties(info gitversion.BuildInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "version=%s\n", info.Version)
	fmt.Fprintf(&b, "timestamp=%s\n", info.Timestamp)
	fmt.Fprintf(&b, "git.hash=%s\n", info.Hash())
	fmt.Fprintf(&b, "git.timestamp=%s\n", info.CommitTime())
	return b.String()
}

// WriteProperties writes the properties file, creating parent directories.
func WriteProperties(fs billy.Filesystem, path string, info gitversion.BuildInfo) error {
	return writeFile(fs, path, Properties(info))
}

// WriteVersionFile writes the bare version string.
func WriteVersionFile(fs billy.Filesystem, path string, info gitversion.BuildInfo) error {
	return writeFile(fs, path, info.Version)
}

func writeFile(fs billy.Filesystem, path, content string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(fs, path, []byte(content), os.FileMode(0o644)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
