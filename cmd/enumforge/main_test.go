package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/enumforge/enumgen"
	"github.com/chazu/enumforge/manifest"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunFlags(t *testing.T) {
	out := t.TempDir()
	report := filepath.Join(out, "meta", "report.cbor")

	code, stdout, stderr := runCLI(t,
		"-ns", "com.x", "-type", "Color", "-elements", "RED, GREEN,BLUE",
		"-o", out, "-verify", "-report", report)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "wrote 1 modules for com/x/Color") {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stdout, "verified 3 instances") {
		t.Errorf("stdout = %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(out, "com", "x", "Color.class")); err != nil {
		t.Error(err)
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatal(err)
	}
	rep, err := enumgen.UnmarshalReport(data)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Class != "com/x/Color" || rep.Elements != 3 || !rep.Inline {
		t.Errorf("report = %+v", rep)
	}
}

func TestRunDemo(t *testing.T) {
	out := t.TempDir()
	code, stdout, stderr := runCLI(t, "-demo", "2500", "-chunk", "1000", "-o", out, "-verify")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, name := range []string{"Color.class", "Color$0.class", "Color$1.class", "Color$2.class"} {
		if _, err := os.Stat(filepath.Join(out, "com", "x", name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if !strings.Contains(stdout, "verified 2500 instances") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "names.txt"), []byte("C\nD\n"), 0644); err != nil {
		t.Fatal(err)
	}
	m := &manifest.Manifest{
		Enum:   manifest.Enum{Namespace: "org.acme", Type: "Letter", Elements: []string{"A", "B"}, ElementsFile: "names.txt"},
		Output: manifest.Output{Dir: "out"},
		Build:  manifest.Build{ChunkSize: 3, Verify: true},
	}
	if err := manifest.Write(dir, m); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCLI(t, "-manifest", dir)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "wrote 3 modules for org/acme/Letter") || !strings.Contains(stdout, "verified 4 instances") {
		t.Errorf("stdout = %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "org", "acme", "Letter$1.class")); err != nil {
		t.Error(err)
	}

	// Flags override the manifest.
	code, stdout, stderr = runCLI(t, "-manifest", dir, "-type", "Glyph", "-chunk", "10")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "wrote 1 modules for org/acme/Glyph") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traffic-light")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if code, _, stderr := runCLI(t, "-init", "-manifest", dir); code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Enum.Type != "TrafficLight" || len(m.Enum.Elements) != 2 {
		t.Errorf("starter manifest = %+v", m.Enum)
	}
	if code, _, _ := runCLI(t, "-init", "-manifest", dir); code != exitError {
		t.Errorf("second -init exit = %d, want %d", code, exitError)
	}
}

func TestRunErrors(t *testing.T) {
	out := t.TempDir()
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown flag", []string{"-bogus"}, exitUsage},
		{"stray argument", []string{"-demo", "1", "extra"}, exitUsage},
		{"empty element list", []string{"-type", "T", "-elements", "", "-o", out}, exitUsage},
		{"duplicate elements", []string{"-type", "T", "-elements", "A,A", "-o", out}, exitError},
		{"element not an identifier", []string{"-type", "T", "-elements", "A,1bad", "-o", out}, exitError},
		{"namespace without segments", []string{"-ns", ".", "-type", "T", "-elements", "A", "-o", out}, exitError},
		{"missing elements file", []string{"-type", "T", "-elements-file", filepath.Join(out, "nope"), "-o", out}, exitError},
		{"missing manifest", []string{"-manifest", filepath.Join(out, "nowhere")}, exitError},
		{"negative chunk", []string{"-type", "T", "-elements", "A", "-chunk", "-1", "-o", out}, exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, stderr := runCLI(t, tt.args...); code != tt.want {
				t.Errorf("exit %d, want %d (stderr %q)", code, tt.want, stderr)
			}
		})
	}
}
