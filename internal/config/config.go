// Package config reads and writes the on-disk state shared by every vmc
// invocation: the current target pointer, the per-target session records and
// the user's color overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ConfigDirEnvVarName overrides the config root (default ~/.vmc).
	ConfigDirEnvVarName = "VMC_CONFIG_DIR"

	defaultDirName = ".vmc"

	targetFileName = "target"
	tokensFileName = "tokens.yml"
	colorsFileName = "colors.yml"
	crashFileName  = "crash"
	logsDirName    = "logs"

	oldTargetFileName = ".vmc_target"
	oldTokensFileName = ".vmc_token"
)

// homeDirFunc is the function used to find the user's home directory.
// It can be overridden for testing.
var homeDirFunc = os.UserHomeDir

// SetHomeDirFunc sets the home directory function for testing.
// Returns the original function so it can be restored.
func SetHomeDirFunc(fn func() (string, error)) func() (string, error) {
	orig := homeDirFunc
	homeDirFunc = fn
	return orig
}

// Store locates the vmc config root and the legacy files next to it.
type Store struct {
	// Dir is the config root, normally ~/.vmc.
	Dir string
	// Home holds the legacy ~/.vmc_target and ~/.vmc_token files.
	Home string
}

// New returns a Store rooted at dir with legacy files under home.
func New(dir, home string) *Store {
	return &Store{Dir: dir, Home: home}
}

// Default returns the Store for the current user, honoring VMC_CONFIG_DIR.
func Default() (*Store, error) {
	home, err := homeDirFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}

	dir := strings.TrimSpace(os.Getenv(ConfigDirEnvVarName))
	if dir == "" {
		dir = filepath.Join(home, defaultDirName)
	}
	return New(dir, home), nil
}

// ResolvePath returns the first candidate that exists on disk, else the first candidate.
func ResolvePath(candidates ...string) string {
	if len(candidates) == 0 {
		return ""
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return candidates[0]
}

// TargetFile is the target pointer path, preferring the current location.
func (s *Store) TargetFile() string {
	return ResolvePath(filepath.Join(s.Dir, targetFileName), filepath.Join(s.Home, oldTargetFileName))
}

// ColorsFile is the user color override path.
func (s *Store) ColorsFile() string {
	return filepath.Join(s.Dir, colorsFileName)
}

// CrashFile is where the most recent crash report is written.
func (s *Store) CrashFile() string {
	return filepath.Join(s.Dir, crashFileName)
}

// LogFile returns the request log path for a target, named after its host.
func (s *Store) LogFile(target string) string {
	host := target
	if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return filepath.Join(s.Dir, logsDirName, host+".log")
}

// EnsureDir creates the config root if it is missing.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// ReadTarget returns the current target URL, or "" if none was ever set.
func (s *Store) ReadTarget() (string, error) {
	data, err := os.ReadFile(s.TargetFile())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// HasTarget reports whether a target pointer exists at either location.
func (s *Store) HasTarget() bool {
	_, err := os.Stat(s.TargetFile())
	return err == nil
}

// WriteTarget stores url as the current target. Always writes the current location.
func (s *Store) WriteTarget(target string) error {
	if err := s.EnsureDir(); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.Dir, targetFileName), []byte(target))
}

// writeFileAtomic replaces path with data via a temp file and rename so that
// readers never see a half-written file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
