// Package secrets resolves credentials from the environment with a JSON file fallback.
package secrets

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// Store holds values loaded from a secrets file, consulted after the environment.
type Store struct {
	log        *log.Logger
	fileValues map[string]string
}

// Load reads the JSON secrets file at path if it exists. Keys not listed in
// knownKeys are kept but logged as a warning. A missing file is not an error,
// the environment is then the only source.
func Load(log *log.Logger, path string, knownKeys []string) (*Store, error) {
	store := Store{
		log:        log,
		fileValues: make(map[string]string),
	}
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file %s: %w", path, err)
	}
	if err = json.Unmarshal(contents, &store.fileValues); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", path, err)
	}

	known := make(map[string]bool, len(knownKeys))
	for _, key := range knownKeys {
		known[key] = true
	}
	for key := range store.fileValues {
		if !known[key] {
			log.Printf("warning: unknown key %q in secrets file %s", key, path)
		}
	}
	return &store, nil
}

// Get returns the value for name from the environment, falling back to the
// secrets file. Returns the empty string when neither source has it.
func (s *Store) Get(name string) string {
	if value, present := os.LookupEnv(name); present {
		return value
	}
	return s.fileValues[name]
}
