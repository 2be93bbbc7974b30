package gitversion

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultConfigFile is the properties file LoadConfig reads from the
// working directory when no files are given.
const DefaultConfigFile = "gitversion.properties"

// LoadConfig builds a Config from GITVERSION_* variables. Values are read
// from the given dotenv-style files in order, then from the process
// environment, which takes precedence. Missing files are ignored.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{DefaultConfigFile}
	}

	environment := make(map[string]string)
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, &ConfigurationError{Key: file, Err: err}
		}
		maps.Copy(environment, values)
	}
	maps.Copy(environment, env.ToMap(os.Environ()))

	return parseConfig(environment)
}

func parseConfig(environment map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Config{}, &ConfigurationError{Key: "environment", Err: fmt.Errorf("parsing config: %w", err)}
	}
	return cfg, nil
}
