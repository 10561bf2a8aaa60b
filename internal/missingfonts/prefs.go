package missingfonts

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const prefIgnoredScripts = "ignored_scripts"

// PrefStore persists the ignore list between sessions.
type PrefStore interface {
	LoadIgnoreList() ([]string, error)
	SaveIgnoreList(scripts []string) error
}

// FilePrefStore keeps preferences as KEY=VALUE lines in a single file. Keys it
// does not know about are preserved on write.
type FilePrefStore struct {
	Path string
}

// NewFilePrefStore returns a store backed by <stateDir>/prefs.
func NewFilePrefStore(stateDir string) *FilePrefStore {
	return &FilePrefStore{Path: filepath.Join(stateDir, "prefs")}
}

// Load returns every stored preference. A missing file is not an error.
func (s *FilePrefStore) Load() (map[string]string, error) {
	values := make(map[string]string)
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		return values, err
	}
	defer f.Close()
	if err := readKeyValues(f, values); err != nil {
		return values, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	return values, nil
}

// LoadIgnoreList returns the persisted ignored scripts in stored order.
func (s *FilePrefStore) LoadIgnoreList() ([]string, error) {
	values, err := s.Load()
	if err != nil {
		return nil, err
	}
	return splitList(values[prefIgnoredScripts]), nil
}

// SaveIgnoreList stores scripts as "a,b," (every entry comma terminated).
func (s *FilePrefStore) SaveIgnoreList(scripts []string) error {
	var b strings.Builder
	for _, name := range scripts {
		b.WriteString(name)
		b.WriteByte(',')
	}
	return s.Set(prefIgnoredScripts, b.String())
}

// Set writes one key, replacing an existing line or appending a new one. The
// file is rewritten atomically under an exclusive flock.
func (s *FilePrefStore) Set(key, value string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	lockPath := s.Path + ".lock"
	lFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer lFile.Close()
	if err := unix.Flock(int(lFile.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.Path, err)
	}
	defer unix.Flock(int(lFile.Fd()), unix.LOCK_UN)

	existing, err := os.ReadFile(s.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	var out bytes.Buffer
	replaced := false
	scanner := bufio.NewScanner(bytes.NewReader(existing))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if k, _, ok := strings.Cut(trimmed, "="); ok && !strings.HasPrefix(trimmed, "#") && strings.TrimSpace(k) == key {
			if !replaced {
				fmt.Fprintf(&out, "%s=%s\n", key, value)
				replaced = true
			}
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if !replaced {
		fmt.Fprintf(&out, "%s=%s\n", key, value)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", s.Path, err)
	}
	debugf("Saved %s in %s\n", key, s.Path)
	return nil
}
