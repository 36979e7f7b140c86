// Package manifest handles enumforge.toml project configuration.
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "enumforge.toml"

// Manifest represents an enumforge.toml project configuration.
type Manifest struct {
	Enum   Enum   `toml:"enum"`
	Output Output `toml:"output"`
	Build  Build  `toml:"build"`

	// Dir is the directory containing the enumforge.toml file (set at load time).
	Dir string `toml:"-"`
}

// Enum describes the type to generate.
type Enum struct {
	Namespace    string   `toml:"namespace"`
	Type         string   `toml:"type"`
	Elements     []string `toml:"elements"`
	ElementsFile string   `toml:"elements-file,omitempty"`
}

// Output configures where class files go. When S3Bucket is set the
// modules are uploaded instead of written below Dir.
type Output struct {
	Dir         string `toml:"dir"`
	S3Bucket    string `toml:"s3-bucket,omitempty"`
	S3Prefix    string `toml:"s3-prefix,omitempty"`
	S3Region    string `toml:"s3-region,omitempty"`
	S3Endpoint  string `toml:"s3-endpoint,omitempty"`
	S3PathStyle bool   `toml:"s3-path-style,omitempty"`
}

// Build tunes generation.
type Build struct {
	ChunkSize int    `toml:"chunk-size,omitempty"`
	Report    string `toml:"report,omitempty"`
	Verify    bool   `toml:"verify,omitempty"`
}

// Load parses an enumforge.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Output.Dir == "" {
		m.Output.Dir = "classes"
	}
	if m.Enum.Type == "" {
		m.Enum.Type = TypeNameFor(filepath.Base(m.Dir))
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an enumforge.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Write encodes m as enumforge.toml in dir.
func Write(dir string, m *Manifest) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// resolve makes p absolute relative to the manifest directory.
func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// OutputDir returns the absolute output directory.
func (m *Manifest) OutputDir() string {
	return m.resolve(m.Output.Dir)
}

// ReportPath returns the absolute report path, or "" when none is configured.
func (m *Manifest) ReportPath() string {
	return m.resolve(m.Build.Report)
}

// ElementNames returns the inline elements followed by those read from
// elements-file, one per line. Blank lines and lines starting with '#'
// are skipped.
func (m *Manifest) ElementNames() ([]string, error) {
	names := append([]string(nil), m.Enum.Elements...)
	if m.Enum.ElementsFile == "" {
		return names, nil
	}
	more, err := ReadElementsFile(m.resolve(m.Enum.ElementsFile))
	if err != nil {
		return nil, err
	}
	return append(names, more...), nil
}

// ReadElementsFile reads one element name per line.
func ReadElementsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read elements: %w", err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cannot read elements from %s: %w", path, err)
	}
	return names, nil
}
