// enumforge CLI - generates JVM enum class files from a list of names
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/enumforge/enumgen"
	"github.com/chazu/enumforge/loader"
	"github.com/chazu/enumforge/manifest"
	"github.com/chazu/enumforge/storage"

	_ "github.com/tliron/commonlog/simple"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// config is the merged result of the manifest and command-line flags.
type config struct {
	namespace string
	typeName  string
	elements  []string
	outDir    string
	chunkSize int
	report    string
	verify    bool
	bucket    string
	s3        storage.S3Config
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("enumforge", flag.ContinueOnError)
	fs.SetOutput(stderr)

	namespace := fs.String("ns", "", "Namespace (package) of the enum, e.g. com.x")
	typeName := fs.String("type", "", "Simple name of the enum type")
	elements := fs.String("elements", "", "Comma-separated element names")
	elementsFile := fs.String("elements-file", "", "File with one element name per line")
	outDir := fs.String("o", "", "Output root directory")
	chunkSize := fs.Int("chunk", 0, fmt.Sprintf("Elements per auxiliary init routine (default %d, max %d)", enumgen.DefaultChunkSize, enumgen.MaxChunkSize))
	demo := fs.Int("demo", 0, "Generate VAR0..VAR{N-1} into com.x.Color")
	manifestDir := fs.String("manifest", "", "Directory containing enumforge.toml (default: search upward from .)")
	initManifest := fs.Bool("init", false, "Write a starter enumforge.toml and exit")
	report := fs.String("report", "", "Write a CBOR build report to this path")
	verify := fs.Bool("verify", false, "Load the written classes and check every instance")
	verbosity := fs.Int("v", 0, "Log verbosity (1 = info, 2 = debug)")
	logPath := fs.String("log", "", "Write log output to this file")
	bucket := fs.String("s3-bucket", "", "Upload to this S3 bucket instead of the output directory")
	prefix := fs.String("s3-prefix", "", "Key prefix for S3 uploads")
	region := fs.String("s3-region", "", "AWS region")
	endpoint := fs.String("s3-endpoint", "", "Custom S3 endpoint (MinIO, LocalStack)")
	pathStyle := fs.Bool("s3-path-style", false, "Use path-style S3 addressing")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: enumforge [options]\n\n")
		fmt.Fprintf(stderr, "Synthesizes a JVM enum class (plus Type$k helpers for large enums).\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  enumforge -ns com.x -type Color -elements RED,GREEN,BLUE -o classes\n")
		fmt.Fprintf(stderr, "  enumforge -demo 10000 -o classes -verify\n")
		fmt.Fprintf(stderr, "  enumforge -manifest ./colors   # use ./colors/enumforge.toml\n")
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return exitUsage
	}

	if *logPath != "" {
		commonlog.Configure(*verbosity, logPath)
	} else {
		commonlog.Configure(*verbosity, nil)
	}
	log := commonlog.GetLogger("enumforge")

	if *initManifest {
		dir := *manifestDir
		if dir == "" {
			dir = "."
		}
		if err := writeStarterManifest(dir); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		fmt.Fprintf(stdout, "wrote %s\n", filepath.Join(dir, manifest.FileName))
		return exitOK
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var cfg config
	needManifest := *manifestDir != "" || !(set["elements"] || set["elements-file"] || *demo > 0)
	if needManifest {
		m, err := loadManifest(*manifestDir)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		if m != nil {
			log.Infof("using %s", filepath.Join(m.Dir, manifest.FileName))
			if cfg, err = configFromManifest(m); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return exitError
			}
		}
	}

	if *demo > 0 {
		cfg.namespace, cfg.typeName = "com.x", "Color"
		cfg.elements = make([]string, *demo)
		for i := range cfg.elements {
			cfg.elements[i] = fmt.Sprintf("VAR%d", i)
		}
	}
	if set["ns"] {
		cfg.namespace = *namespace
	}
	if set["type"] {
		cfg.typeName = *typeName
	}
	if set["elements"] || set["elements-file"] {
		cfg.elements = nil
		if *elements != "" {
			for _, e := range strings.Split(*elements, ",") {
				cfg.elements = append(cfg.elements, strings.TrimSpace(e))
			}
		}
		if *elementsFile != "" {
			more, err := manifest.ReadElementsFile(*elementsFile)
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return exitError
			}
			cfg.elements = append(cfg.elements, more...)
		}
	}
	if set["o"] {
		cfg.outDir = *outDir
	}
	if set["chunk"] {
		cfg.chunkSize = *chunkSize
	}
	if set["report"] {
		cfg.report = *report
	}
	if set["verify"] {
		cfg.verify = *verify
	}
	if set["s3-bucket"] {
		cfg.bucket = *bucket
	}
	if set["s3-prefix"] {
		cfg.s3.Prefix = *prefix
	}
	if set["s3-region"] {
		cfg.s3.Region = *region
	}
	if set["s3-endpoint"] {
		cfg.s3.Endpoint = *endpoint
	}
	if set["s3-path-style"] {
		cfg.s3.UsePathStyle = *pathStyle
	}
	if cfg.outDir == "" {
		cfg.outDir = "."
	}

	if len(cfg.elements) == 0 {
		fmt.Fprintf(stderr, "Error: no elements given (use -elements, -elements-file, -demo or an %s)\n", manifest.FileName)
		fs.Usage()
		return exitUsage
	}

	if err := generate(context.Background(), cfg, log, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func loadManifest(dir string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	return manifest.FindAndLoad(".")
}

func configFromManifest(m *manifest.Manifest) (config, error) {
	names, err := m.ElementNames()
	if err != nil {
		return config{}, err
	}
	return config{
		namespace: m.Enum.Namespace,
		typeName:  m.Enum.Type,
		elements:  names,
		outDir:    m.OutputDir(),
		chunkSize: m.Build.ChunkSize,
		report:    m.ReportPath(),
		verify:    m.Build.Verify,
		bucket:    m.Output.S3Bucket,
		s3: storage.S3Config{
			Region:       m.Output.S3Region,
			Endpoint:     m.Output.S3Endpoint,
			UsePathStyle: m.Output.S3PathStyle,
			Prefix:       m.Output.S3Prefix,
		},
	}, nil
}

func writeStarterManifest(dir string) error {
	path := filepath.Join(dir, manifest.FileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	return manifest.Write(dir, &manifest.Manifest{
		Enum: manifest.Enum{
			Namespace: "com.example",
			Type:      manifest.TypeNameFor(filepath.Base(abs)),
			Elements:  []string{"FIRST", "SECOND"},
		},
		Output: manifest.Output{Dir: "classes"},
		Build:  manifest.Build{ChunkSize: enumgen.DefaultChunkSize},
	})
}

func generate(ctx context.Context, cfg config, log commonlog.Logger, stdout io.Writer) error {
	spec, err := enumgen.NewTypeSpec(cfg.namespace, cfg.typeName, cfg.elements)
	if err != nil {
		return err
	}

	var sink storage.Sink
	where := filepath.Join(cfg.outDir, filepath.FromSlash(manifest.NamespacePath(cfg.namespace)))
	if cfg.bucket != "" {
		s3sink, err := storage.NewS3Sink(ctx, cfg.bucket, cfg.s3)
		if err != nil {
			return err
		}
		sink = s3sink
		where = "s3://" + cfg.bucket + "/" + strings.TrimPrefix(cfg.s3.Prefix+"/"+spec.Namespace(), "/")
	} else {
		sink = storage.NewDirSink(cfg.outDir)
	}

	gen := enumgen.New(enumgen.Options{ChunkSize: cfg.chunkSize, Logger: log})
	res, err := gen.Write(ctx, spec, sink)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d modules for %s to %s\n", len(res.Modules), spec.InternalName(), where)

	if cfg.report != "" {
		if err := writeReport(cfg.report, enumgen.NewReport(res)); err != nil {
			return err
		}
		log.Infof("report written to %s", cfg.report)
	}

	if cfg.verify {
		e, err := loader.LoadEnum(loader.SinkSource{Ctx: ctx, Sink: sink}, spec.InternalName())
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		if err := e.Check(spec.Elements()); err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		fmt.Fprintf(stdout, "verified %d instances (%d instructions executed)\n", spec.Len(), e.Loader().Steps())
	}
	return nil
}

func writeReport(path string, rep *enumgen.Report) error {
	data, err := enumgen.MarshalReport(rep)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorage, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorage, err)
	}
	return nil
}
