package enumgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/chazu/enumforge/loader"
	"github.com/chazu/enumforge/pkg/bytecode"
	"github.com/chazu/enumforge/pkg/classfile"
	"github.com/chazu/enumforge/storage"
)

func varNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("VAR%d", i)
	}
	return names
}

func mustGenerate(t *testing.T, chunk int, names []string) *Result {
	t.Helper()
	spec, err := NewTypeSpec("com.x", "Color", names)
	if err != nil {
		t.Fatal(err)
	}
	res, err := New(Options{ChunkSize: chunk}).Generate(spec)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return res
}

func source(res *Result) loader.MapSource {
	src := loader.MapSource{}
	for _, m := range res.Modules {
		src[m.Name] = m.Bytes
	}
	return src
}

// staticCalls lists the invokestatic targets in <clinit>, in code order.
func staticCalls(t *testing.T, main Module) []string {
	t.Helper()
	cf, err := classfile.Parse(main.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	insts, err := bytecode.Decode(cf.Method(clinitName, classfile.VoidMethod).Code)
	if err != nil {
		t.Fatal(err)
	}
	var calls []string
	for _, in := range insts {
		if in.Op != bytecode.OpInvokestatic {
			continue
		}
		ref, err := cf.MemberAt(uint16(in.Operand))
		if err != nil {
			t.Fatal(err)
		}
		calls = append(calls, ref.Owner+"."+ref.Name)
	}
	return calls
}

func TestGenerateInline(t *testing.T) {
	res := mustGenerate(t, DefaultChunkSize, []string{"VAR0", "VAR1", "VAR2"})
	if len(res.Modules) != 1 || res.Main().Path != "com/x/Color.class" {
		t.Fatalf("modules = %+v", res.Modules)
	}
	if calls := staticCalls(t, res.Main()); len(calls) != 0 {
		t.Errorf("inline <clinit> calls %v", calls)
	}

	e, err := loader.LoadEnum(source(res), "com/x/Color")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Check([]string{"VAR0", "VAR1", "VAR2"}); err != nil {
		t.Error(err)
	}
}

func TestGenerateMainClassShape(t *testing.T) {
	res := mustGenerate(t, DefaultChunkSize, []string{"RED", "GREEN"})
	cf, err := classfile.Parse(res.Main().Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if cf.Major != 49 || cf.SuperClass != classfile.EnumClass {
		t.Errorf("version %d, super %s", cf.Major, cf.SuperClass)
	}
	if cf.Access != 0x4031 {
		t.Errorf("class access = %#04x, want 0x4031", cf.Access)
	}

	red := cf.Field("RED")
	if red == nil || red.Access != 0x0009 || red.Descriptor != "Lcom/x/Color;" {
		t.Errorf("RED = %+v", red)
	}
	values := cf.Field("$VALUES")
	if values == nil || values.Access != 0x1018 || values.Descriptor != "[Lcom/x/Color;" {
		t.Errorf("$VALUES = %+v", values)
	}

	methods := []struct {
		name, desc string
		access     classfile.AccessFlags
	}{
		{"valueOf", "(Ljava/lang/String;)Lcom/x/Color;", 0x0009},
		{"values", "()[Lcom/x/Color;", 0x0009},
		{"<init>", "(Ljava/lang/String;I)V", 0},
		{"<clinit>", "()V", 0x0008},
	}
	for _, want := range methods {
		m := cf.Method(want.name, want.desc)
		if m == nil {
			t.Errorf("missing %s%s", want.name, want.desc)
			continue
		}
		if m.Access != want.access {
			t.Errorf("%s access = %#04x, want %#04x", want.name, m.Access, want.access)
		}
	}
	if ctor := cf.Method("<init>", "(Ljava/lang/String;I)V"); ctor != nil && (ctor.MaxStack != 3 || ctor.MaxLocals != 3) {
		t.Errorf("<init> maxs = %d/%d, want 3/3", ctor.MaxStack, ctor.MaxLocals)
	}
}

func TestGeneratePartitioned(t *testing.T) {
	names := varNames(10000)
	res := mustGenerate(t, 1000, names)

	if len(res.Aux()) != 10 {
		t.Fatalf("aux modules = %d, want 10", len(res.Aux()))
	}
	var want []string
	for k, m := range res.Aux() {
		name := fmt.Sprintf("com/x/Color$%d", k)
		if m.Name != name || m.Path != name+".class" || !m.Aux {
			t.Errorf("aux %d = %s (%s)", k, m.Name, m.Path)
		}
		want = append(want, name+".init")
	}
	if got := staticCalls(t, res.Main()); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("<clinit> calls %v, want %v", got, want)
	}

	aux, err := classfile.Parse(res.Aux()[3].Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if aux.Access != classfile.AccFinal|classfile.AccSuper || aux.SuperClass != classfile.ObjectClass {
		t.Errorf("aux access %#04x super %s", aux.Access, aux.SuperClass)
	}
	if len(aux.Fields) != 0 || len(aux.Methods) != 1 || aux.Methods[0].Access != classfile.AccStatic|classfile.AccFinal {
		t.Errorf("aux members: %d fields, methods %+v", len(aux.Fields), aux.Methods)
	}

	e, err := loader.LoadEnum(source(res), "com/x/Color")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Check(names); err != nil {
		t.Error(err)
	}
}

func TestGenerateChunkBoundary(t *testing.T) {
	const chunk = 7
	for _, n := range []int{chunk, chunk + 1} {
		names := varNames(n)
		res := mustGenerate(t, chunk, names)
		wantModules := 1
		if n > chunk {
			wantModules = 3
		}
		if len(res.Modules) != wantModules {
			t.Errorf("N=%d: %d modules, want %d", n, len(res.Modules), wantModules)
		}
		e, err := loader.LoadEnum(source(res), "com/x/Color")
		if err != nil {
			t.Fatalf("N=%d: %v", n, err)
		}
		if err := e.Check(names); err != nil {
			t.Errorf("N=%d: %v", n, err)
		}
	}
}

func TestGenerateLargeOrdinals(t *testing.T) {
	// Ordinals past 32767 are pushed from the constant pool.
	names := varNames(33000)
	res := mustGenerate(t, 2000, names)
	e, err := loader.LoadEnum(source(res), "com/x/Color")
	if err != nil {
		t.Fatal(err)
	}
	last, err := e.ValueOf("VAR32999")
	if err != nil {
		t.Fatal(err)
	}
	if last.Ordinal != 32999 {
		t.Errorf("VAR32999 ordinal = %d", last.Ordinal)
	}
}

func TestGenerateErrors(t *testing.T) {
	spec, err := NewTypeSpec("com.x", "Color", []string{"A"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(Options{ChunkSize: -1}).Generate(spec); !errors.Is(err, ErrConfiguration) {
		t.Errorf("negative chunk: %v", err)
	}

	// One field per element: 70000 fields cannot fit one constant pool.
	big, err := NewTypeSpec("com.x", "Color", varNames(70000))
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(Options{}).Generate(big)
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, classfile.ErrConstantPoolOverflow) {
		t.Errorf("pool overflow: %v", err)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := mustGenerate(t, 3, varNames(10))
	b := mustGenerate(t, 3, varNames(10))
	for i := range a.Modules {
		if !bytes.Equal(a.Modules[i].Bytes, b.Modules[i].Bytes) {
			t.Errorf("module %s differs between runs", a.Modules[i].Name)
		}
	}
}

func TestWriteOrdersAuxiliaryFirst(t *testing.T) {
	spec, err := NewTypeSpec("com.x", "Color", varNames(5))
	if err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{MemSink: storage.NewMemSink()}
	if _, err := New(Options{ChunkSize: 2}).Write(context.Background(), spec, sink); err != nil {
		t.Fatal(err)
	}
	want := "[com/x/Color$0.class com/x/Color$1.class com/x/Color$2.class com/x/Color.class]"
	if got := fmt.Sprint(sink.order); got != want {
		t.Errorf("write order = %s, want %s", got, want)
	}
}

func TestWriteStorageFailure(t *testing.T) {
	spec, err := NewTypeSpec("com.x", "Color", varNames(2))
	if err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{MemSink: storage.NewMemSink(), fail: true}
	if _, err := New(Options{}).Write(context.Background(), spec, sink); !errors.Is(err, storage.ErrStorage) {
		t.Errorf("got %v, want ErrStorage", err)
	}
}

type recordingSink struct {
	*storage.MemSink
	order []string
	fail  bool
}

func (r *recordingSink) Put(ctx context.Context, path string, data []byte) error {
	if r.fail {
		return fmt.Errorf("%w: disk full", storage.ErrStorage)
	}
	r.order = append(r.order, path)
	return r.MemSink.Put(ctx, path, data)
}

func TestSynthesize(t *testing.T) {
	root := t.TempDir()
	names := varNames(2500)
	if err := Synthesize("com.x", "Color", names, root); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	var written []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			rel, _ := filepath.Rel(root, path)
			written = append(written, filepath.ToSlash(rel))
		}
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "[com/x/Color$0.class com/x/Color$1.class com/x/Color$2.class com/x/Color.class]"
	if fmt.Sprint(written) != want {
		t.Errorf("files = %v, want %s", written, want)
	}

	e, err := loader.LoadEnum(loader.SinkSource{Sink: storage.NewDirSink(root)}, "com/x/Color")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Check(names); err != nil {
		t.Error(err)
	}
}

func TestSynthesizeIdempotent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "com", "x", "Color.class")
	names := []string{"VAR0", "VAR1", "VAR2"}

	if err := Synthesize("com.x", "Color", names, root); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Leave junk behind; the second run must overwrite it.
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xff}, len(first)*2), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Synthesize("com.x", "Color", names, root); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("second synthesis produced different bytes")
	}
}

func TestSynthesizeRejectsEmpty(t *testing.T) {
	root := t.TempDir()
	if err := Synthesize("com.x", "Color", nil, root); !errors.Is(err, ErrConfiguration) {
		t.Errorf("got %v, want ErrConfiguration", err)
	}
	if entries, _ := os.ReadDir(root); len(entries) != 0 {
		t.Errorf("files written for a rejected spec: %v", entries)
	}
}

func TestProperty_InstancesMatchElements(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("loaded enum lists every element in order", prop.ForAll(
		func(raw []string, chunk int) bool {
			seen := map[string]bool{}
			var names []string
			for _, n := range raw {
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
			}

			spec, err := NewTypeSpec("p.q", "E", names)
			if len(names) == 0 {
				return errors.Is(err, ErrConfiguration)
			}
			if err != nil {
				return false
			}
			res, err := New(Options{ChunkSize: chunk}).Generate(spec)
			if err != nil {
				return false
			}
			wantAux := 0
			if len(names) > chunk {
				wantAux = (len(names) + chunk - 1) / chunk
			}
			if len(res.Aux()) != wantAux {
				return false
			}
			e, err := loader.LoadEnum(source(res), "p/q/E")
			if err != nil {
				return false
			}
			return e.Check(names) == nil
		},
		gen.SliceOf(gen.Identifier()),
		gen.IntRange(1, 8),
	))

	properties.Property("generation is deterministic", prop.ForAll(
		func(n, chunk int) bool {
			spec, err := NewTypeSpec("p", "E", varNames(n))
			if err != nil {
				return false
			}
			a, errA := New(Options{ChunkSize: chunk}).Generate(spec)
			b, errB := New(Options{ChunkSize: chunk}).Generate(spec)
			if errA != nil || errB != nil || len(a.Modules) != len(b.Modules) {
				return false
			}
			for i := range a.Modules {
				if !bytes.Equal(a.Modules[i].Bytes, b.Modules[i].Bytes) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 300),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}

func TestLoggerOption(t *testing.T) {
	// The default logger must be usable without any backend configured.
	g := New(Options{})
	if g.log == nil {
		t.Fatal("nil default logger")
	}
	if _, err := g.Generate(mustSpec(t, "A")); err != nil {
		t.Fatal(err)
	}
}

func mustSpec(t *testing.T, names ...string) *TypeSpec {
	t.Helper()
	s, err := NewTypeSpec("", "T", names)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestListing(t *testing.T) {
	res := mustGenerate(t, 1000, []string{"RED", "GREEN", "BLUE"})
	out, err := Listing(res.Main())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<clinit>()V stack=",
		"ANEWARRAY",
		`"GREEN"`,
		"ICONST_2",
		"com/x/Color.<init>:(Ljava/lang/String;I)V",
		"com/x/Color.$VALUES:[Lcom/x/Color;",
		"java/lang/Enum.valueOf:(Ljava/lang/Class;Ljava/lang/String;)Ljava/lang/Enum;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}

	if _, err := Listing(Module{Name: "junk", Bytes: []byte{1, 2, 3}}); err == nil {
		t.Error("Listing accepted a malformed module")
	}
}
