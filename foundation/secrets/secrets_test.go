package secrets

import (
	"bytes"
	logger "log"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func TestLoadMissingFile(t *testing.T) {
	is := is.New(t)

	log := logger.New(os.Stdout, "TEST : ", logger.LstdFlags)
	store, err := Load(log, filepath.Join(t.TempDir(), "absent.json"), []string{"API_USER"})
	is.NoErr(err)
	is.Equal(store.Get("API_USER"), "")
}

func TestGetPrefersEnvironment(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "secrets.json")
	is.NoErr(os.WriteFile(path, []byte(`{"API_USER":"from-file","API_PASSWORD":"pw"}`), 0600))

	log := logger.New(os.Stdout, "TEST : ", logger.LstdFlags)
	store, err := Load(log, path, []string{"API_USER", "API_PASSWORD"})
	is.NoErr(err)

	is.Equal(store.Get("API_PASSWORD"), "pw")

	t.Setenv("API_USER", "from-env")
	is.Equal(store.Get("API_USER"), "from-env")
}

func TestLoadWarnsOnUnknownKeys(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "secrets.json")
	is.NoErr(os.WriteFile(path, []byte(`{"API_USER":"u","EXTRA":"v"}`), 0600))

	var buffer bytes.Buffer
	log := logger.New(&buffer, "TEST : ", logger.LstdFlags)
	store, err := Load(log, path, []string{"API_USER"})
	is.NoErr(err)

	// the unknown key is kept and warned about
	is.Equal(store.Get("EXTRA"), "v")
	is.True(bytes.Contains(buffer.Bytes(), []byte(`unknown key "EXTRA"`)))
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "secrets.json")
	is.NoErr(os.WriteFile(path, []byte(`not json`), 0600))

	log := logger.New(os.Stdout, "TEST : ", logger.LstdFlags)
	_, err := Load(log, path, nil)
	is.True(err != nil)
}
