// Package store persists collector output in the data directory. Every file
// is replaced atomically so an interrupted run leaves earlier files intact.
package store

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrNoData is returned when a data file does not exist.
var ErrNoData = errors.New("no data")

const (
	DependenciesFile = "app-deps.json"
	SnapshotFile     = "snapshot.json"
	ProjectsFile     = "projects.json"
	ReleasesFile     = "releases.csv"
	CadenceFile      = "release-cadence.json"
	AllProjects      = "all"
)

// Store reads and writes the files of one data directory.
type Store struct {
	dir string
}

// New returns a store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the location of a data file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteFile atomically replaces name with data.
func (s *Store) WriteFile(name string, data []byte) error {
	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "could not create directory for %s", path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "could not create temporary file for %s", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "could not write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "could not sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "could not close %s", path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrapf(err, "could not set permissions on %s", path)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "could not replace %s", path)
}

// ReadFile returns the content of name, or ErrNoData when it does not exist.
func (s *Store) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(ErrNoData, name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", name)
	}
	return data, nil
}

// WriteJSON atomically writes v as indented JSON.
func (s *Store) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return errors.Wrapf(err, "could not encode %s", name)
	}
	return s.WriteFile(name, append(data, '\n'))
}

// ReadJSON decodes name into v.
func (s *Store) ReadJSON(name string, v any) error {
	data, err := s.ReadFile(name)
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal(data, v), "could not decode %s", name)
}
