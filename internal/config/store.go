// Package config loads and saves the per-project sidecar document kept at the
// root of a watched tree.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"incgraph/internal/logging"
	"incgraph/internal/notify"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

const (
	FileName      = ".incgraph.yaml"
	CurrentSyntax = 1
)

var (
	ErrRootRequired = errors.New("config root is required")
	ErrInvalid      = errors.New("invalid config")
)

type Group struct {
	Name   string `yaml:"name" json:"name"`
	Colour string `yaml:"colour,omitempty" json:"colour,omitempty"`
	Path   string `yaml:"path" json:"path"`
}

type ConfigTree struct {
	Syntax       int      `yaml:"syntax" json:"syntax"`
	IncludeRoots []string `yaml:"include_roots,omitempty" json:"include_roots,omitempty"`
	IgnoreList   []string `yaml:"ignore_list,omitempty" json:"ignore_list,omitempty"`
	Groups       []Group  `yaml:"groups,omitempty" json:"groups,omitempty"`
}

func Default() ConfigTree {
	return ConfigTree{Syntax: CurrentSyntax}
}

// Validate rejects documents that Load would reset.
func (c ConfigTree) Validate() error {
	if c.Syntax < 1 {
		return fmt.Errorf("%w: syntax %d", ErrInvalid, c.Syntax)
	}
	for _, pattern := range c.IgnoreList {
		if !doublestar.ValidatePattern(strings.TrimSpace(pattern)) {
			return fmt.Errorf("%w: ignore pattern %q", ErrInvalid, pattern)
		}
	}
	for i, group := range c.Groups {
		if strings.TrimSpace(group.Name) == "" {
			return fmt.Errorf("%w: group %d has no name", ErrInvalid, i)
		}
	}
	return nil
}

// Store reads and writes FileName under a root. Recoverable problems are
// reported through Sink, never returned.
type Store struct {
	Logger *logging.Logger
	Sink   notify.Sink
}

func Path(root string) string {
	return filepath.Join(root, FileName)
}

// Load returns the document for root. A missing file is created with
// defaults; a malformed one is overwritten with defaults.
func (s *Store) Load(root string) (ConfigTree, error) {
	if strings.TrimSpace(root) == "" {
		return ConfigTree{}, ErrRootRequired
	}
	path := Path(root)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := s.write(path, cfg); err != nil {
			return cfg, err
		}
		s.logger().Info("config created", map[string]string{"path": path})
		notify.Notify(s.Sink, notify.Info("Config created", "Created "+path+" with default settings").WithTimeout(5))
		return cfg, nil
	}
	if err != nil {
		return ConfigTree{}, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(data)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		s.logger().Warn("config reset", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		cfg = Default()
		if writeErr := s.write(path, cfg); writeErr != nil {
			return cfg, writeErr
		}
		notify.Notify(s.Sink, notify.Warning("Config reset", fmt.Sprintf("%s was invalid and has been reset: %v", path, err)))
		return cfg, nil
	}
	return cfg, nil
}

// Save validates cfg and replaces the document for root.
func (s *Store) Save(root string, cfg ConfigTree) error {
	if strings.TrimSpace(root) == "" {
		return ErrRootRequired
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	path := Path(root)
	if err := s.write(path, cfg); err != nil {
		return err
	}
	s.logger().Info("config saved", map[string]string{"path": path})
	return nil
}

func (s *Store) logger() *logging.Logger {
	if s == nil {
		return nil
	}
	return s.Logger.Component("config")
}

func (s *Store) write(path string, cfg ConfigTree) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, 0o644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func decode(data []byte) (ConfigTree, error) {
	var cfg ConfigTree
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return ConfigTree{}, fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return ConfigTree{}, err
	}
	return cfg, nil
}

func encode(cfg ConfigTree) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(destPath string, mode os.FileMode, reader io.Reader) error {
	dir := filepath.Dir(destPath)
	tempFile, err := os.CreateTemp(dir, ".incgraph-config-*")
	if err != nil {
		return err
	}
	defer func() {
		tempFile.Close()
		os.Remove(tempFile.Name())
	}()

	if _, err := io.Copy(tempFile, reader); err != nil {
		return err
	}
	if err := tempFile.Sync(); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tempFile.Name(), destPath); err != nil {
		return err
	}
	return os.Chmod(destPath, mode)
}
