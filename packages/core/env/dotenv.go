package env

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv parses a .env file without touching the process environment.
// Supports: KEY=value, export KEY=value, KEY="quoted value", KEY='single quoted', # comments
func LoadDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return vars, nil
}

// FileLookup resolves from the process environment first and falls back to
// values read from a .env file.
func FileLookup(fileVars map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		if val, ok := os.LookupEnv(name); ok {
			return val, true
		}
		val, ok := fileVars[name]
		return val, ok
	}
}
