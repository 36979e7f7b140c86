package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[enum]
namespace = "com.x"
type = "Color"
elements = ["RED", "GREEN"]
elements-file = "more.txt"

[output]
dir = "out"
s3-bucket = "classes"
s3-prefix = "enums"
s3-region = "eu-west-1"
s3-endpoint = "http://localhost:9000"
s3-path-style = true

[build]
chunk-size = 500
report = "build/report.cbor"
verify = true
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "more.txt"), []byte("# extra\nBLUE\n\n  ALPHA  \n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Enum.Namespace != "com.x" || m.Enum.Type != "Color" {
		t.Errorf("enum = %+v", m.Enum)
	}
	if m.Output.S3Bucket != "classes" || m.Output.S3Prefix != "enums" || m.Output.S3Region != "eu-west-1" {
		t.Errorf("output = %+v", m.Output)
	}
	if m.Output.S3Endpoint != "http://localhost:9000" || !m.Output.S3PathStyle {
		t.Errorf("s3 endpoint = %q path style = %v", m.Output.S3Endpoint, m.Output.S3PathStyle)
	}
	if m.Build.ChunkSize != 500 || !m.Build.Verify {
		t.Errorf("build = %+v", m.Build)
	}
	if m.OutputDir() != filepath.Join(m.Dir, "out") {
		t.Errorf("OutputDir = %q", m.OutputDir())
	}
	if m.ReportPath() != filepath.Join(m.Dir, "build", "report.cbor") {
		t.Errorf("ReportPath = %q", m.ReportPath())
	}

	names, err := m.ElementNames()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"RED", "GREEN", "BLUE", "ALPHA"}
	if len(names) != len(want) {
		t.Fatalf("ElementNames = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ElementNames[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traffic-light")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[enum]\nelements = [\"RED\"]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Output.Dir != "classes" {
		t.Errorf("default output dir = %q, want classes", m.Output.Dir)
	}
	if m.Enum.Type != "TrafficLight" {
		t.Errorf("default type = %q, want TrafficLight", m.Enum.Type)
	}
	if m.ReportPath() != "" {
		t.Errorf("ReportPath = %q, want empty", m.ReportPath())
	}
}

func TestLoadManifestErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Error("expected error for missing manifest")
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[enum\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}

	m := &Manifest{Dir: dir, Enum: Enum{ElementsFile: "absent.txt"}}
	if _, err := m.ElementNames(); err == nil {
		t.Error("expected error for missing elements file")
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	tomlContent := `[enum]
type = "Found"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Enum.Type != "Found" {
		t.Errorf("type = %q, want Found", m.Enum.Type)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no enumforge.toml exists")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := &Manifest{
		Enum:   Enum{Namespace: "com.x", Type: "Color", Elements: []string{"VAR0", "VAR1"}},
		Output: Output{Dir: "out"},
		Build:  Build{ChunkSize: 1000},
	}
	if err := Write(dir, in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Enum.Namespace != "com.x" || out.Enum.Type != "Color" || len(out.Enum.Elements) != 2 {
		t.Errorf("enum = %+v", out.Enum)
	}
	if out.Output.Dir != "out" || out.Build.ChunkSize != 1000 {
		t.Errorf("output = %+v build = %+v", out.Output, out.Build)
	}
}
