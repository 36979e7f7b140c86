package enumgen

import (
	"context"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/enumforge/pkg/classfile"
	"github.com/chazu/enumforge/storage"
)

// Options configures a Generator.
type Options struct {
	// ChunkSize is the number of elements per auxiliary init routine.
	// Zero selects DefaultChunkSize; larger than MaxChunkSize is clamped.
	ChunkSize int
	// Logger defaults to the "enumforge.enumgen" logger.
	Logger commonlog.Logger
}

// Generator turns TypeSpecs into class files.
type Generator struct {
	chunkSize int
	log       commonlog.Logger
}

// New creates a generator. A negative chunk size is a configuration error
// reported by Generate.
func New(opts Options) *Generator {
	log := opts.Logger
	if log == nil {
		log = commonlog.GetLogger("enumforge.enumgen")
	}
	return &Generator{chunkSize: opts.ChunkSize, log: log}
}

// Module is one serialized class file.
type Module struct {
	Name  string // internal name, e.g. "com/x/Color$0"
	Path  string // slash-separated relative path, e.g. "com/x/Color$0.class"
	Bytes []byte
	Aux   bool
}

// Result is the complete module set for one type. Modules[0] is always the
// main class; auxiliary classes follow in partition order.
type Result struct {
	Spec    *TypeSpec
	Plan    Plan
	Modules []Module
}

// Main returns the main class module.
func (r *Result) Main() Module { return r.Modules[0] }

// Aux returns the auxiliary modules in partition order.
func (r *Result) Aux() []Module { return r.Modules[1:] }

// Generate builds and serializes every module in memory. Format limits
// such as constant pool overflow are reported as ErrConfiguration.
func (g *Generator) Generate(spec *TypeSpec) (*Result, error) {
	if g.chunkSize < 0 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrConfiguration, g.chunkSize)
	}
	chunk := EffectiveChunkSize(g.chunkSize)
	if g.chunkSize > chunk {
		g.log.Warningf("chunk size %d exceeds the per-method limit, using %d", g.chunkSize, chunk)
	}

	plan := NewPlan(spec.Len(), chunk)
	if plan.Inline() {
		g.log.Infof("%s: %d elements, inline initialization", spec.InternalName(), spec.Len())
	} else {
		g.log.Infof("%s: %d elements in %d chunks of %d", spec.InternalName(), spec.Len(), len(plan.Partitions), chunk)
	}

	res := &Result{Spec: spec, Plan: plan}

	main, err := buildMain(spec, plan)
	if err != nil {
		return nil, err
	}
	if err := res.add(main, false); err != nil {
		return nil, err
	}
	if !plan.Inline() {
		for _, part := range plan.Partitions {
			aux, err := buildAux(spec, part)
			if err != nil {
				return nil, err
			}
			if err := res.add(aux, true); err != nil {
				return nil, err
			}
		}
	}

	for _, m := range res.Modules {
		g.log.Debugf("%s: %d bytes", m.Name, len(m.Bytes))
		if g.log.AllowLevel(commonlog.Debug) {
			listing, err := Listing(m)
			if err != nil {
				return nil, err
			}
			g.log.Debugf("%s:\n%s", m.Name, listing)
		}
	}
	return res, nil
}

func (r *Result) add(c *classfile.Class, aux bool) error {
	data, err := c.Bytes()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	r.Modules = append(r.Modules, Module{
		Name:  c.Name,
		Path:  c.Name + ".class",
		Bytes: data,
		Aux:   aux,
	})
	return nil
}

// Write generates the module set and stores it in sink. Auxiliary classes
// are written before the main class that references them. A storage
// failure may leave some modules written.
func (g *Generator) Write(ctx context.Context, spec *TypeSpec, sink storage.Sink) (*Result, error) {
	res, err := g.Generate(spec)
	if err != nil {
		return nil, err
	}
	for _, m := range res.Aux() {
		if err := sink.Put(ctx, m.Path, m.Bytes); err != nil {
			return nil, err
		}
	}
	main := res.Main()
	if err := sink.Put(ctx, main.Path, main.Bytes); err != nil {
		return nil, err
	}
	g.log.Infof("wrote %d modules for %s", len(res.Modules), spec.InternalName())
	return res, nil
}
