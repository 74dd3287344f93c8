// Package bucket provides a minimal object store abstraction with filesystem
// and in-memory backends.
package bucket

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrObjectNotFound is returned by Get when no object exists under the key.
var ErrObjectNotFound = fmt.Errorf("object not found")

// Bucket stores immutable objects under slash separated keys.
type Bucket interface {
	// Put writes the contents of r under key, replacing any existing object.
	Put(key string, r io.Reader) error

	// Get returns the contents stored under key, or ErrObjectNotFound.
	Get(key string) ([]byte, error)

	// List returns all keys starting with prefix, in lexical order.
	List(prefix string) ([]string, error)
}

// Filesystem is a Bucket backed by a directory tree.
type Filesystem struct {
	root string
}

// NewFilesystem creates the root directory if needed and returns a Filesystem bucket.
func NewFilesystem(root string) (*Filesystem, error) {
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("creating bucket root %s: %w", root, err)
	}
	return &Filesystem{root: root}, nil
}

func (f *Filesystem) Put(key string, r io.Reader) error {
	destination := filepath.Join(f.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(destination), os.ModePerm); err != nil {
		return err
	}
	out, err := os.Create(destination)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, r)
	closeErr := out.Close()
	if err != nil {
		return err
	}
	return closeErr
}

func (f *Filesystem) Get(key string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil, ErrObjectNotFound
	}
	return contents, err
}

func (f *Filesystem) List(prefix string) ([]string, error) {
	var keys []string
	err := filepath.Walk(f.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Memory is a Bucket held in process memory, used by tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory returns an empty in-memory bucket.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(key string, r io.Reader) error {
	contents, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = contents
	return nil
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	contents, present := m.objects[key]
	if !present {
		return nil, ErrObjectNotFound
	}
	return contents, nil
}

func (m *Memory) List(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// MirrorDirectory copies every file under directory into b, prefixing each
// key with prefix. Relative paths below directory become the remainder of the key.
func MirrorDirectory(b Bucket, prefix string, directory string) error {
	return filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(directory, path)
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() {
			_ = in.Close()
		}()
		key := prefix + "/" + filepath.ToSlash(rel)
		return b.Put(key, in)
	})
}
