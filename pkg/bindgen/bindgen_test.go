package bindgen

import (
	"errors"
	"go/ast"
	"go/parser"
	gotoken "go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "testdata/chromaprint.h"

func parseFixture(t *testing.T, defines ...string) *Header {
	t.Helper()
	h, err := ParseFile(fixture, defines...)
	require.NoError(t, err)
	return h
}

func funcDecls(t *testing.T, src []byte) []*ast.FuncDecl {
	t.Helper()
	f, err := parser.ParseFile(gotoken.NewFileSet(), "bindings.go", src, parser.ParseComments)
	require.NoError(t, err)

	var decls []*ast.FuncDecl
	for _, d := range f.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok {
			decls = append(decls, fd)
		}
	}
	return decls
}

func TestParseFixture(t *testing.T) {
	h := parseFixture(t)

	assert.Equal(t, "chromaprint.h", h.Name)
	assert.Equal(t, []string{"stdint.h"}, h.Includes)
	assert.Len(t, h.Functions, 23)

	major, ok := h.IntMacro("CHROMAPRINT_VERSION_MAJOR")
	require.True(t, ok)
	assert.EqualValues(t, 1, major)
	minor, ok := h.IntMacro("CHROMAPRINT_VERSION_MINOR")
	require.True(t, ok)
	assert.EqualValues(t, 5, minor)

	// Header guard and export macros are not constants
	_, ok = h.IntMacro("CHROMAPRINT_API")
	assert.False(t, ok)

	require.Len(t, h.Enums, 1)
	assert.Equal(t, "ChromaprintAlgorithm", h.Enums[0].Typedef)
	assert.Len(t, h.Enums[0].Constants, 6)
	assert.Equal(t, "CHROMAPRINT_ALGORITHM_TEST2", h.Enums[0].Constants[5].Value)

	assert.Equal(t, []string{
		"CHROMAPRINT_VERSION_MAJOR",
		"CHROMAPRINT_VERSION_MINOR",
		"CHROMAPRINT_VERSION_PATCH",
		"CHROMAPRINT_ALGORITHM_TEST1",
		"CHROMAPRINT_ALGORITHM_TEST2",
		"CHROMAPRINT_ALGORITHM_TEST3",
		"CHROMAPRINT_ALGORITHM_TEST4",
		"CHROMAPRINT_ALGORITHM_TEST5",
		"CHROMAPRINT_ALGORITHM_DEFAULT",
	}, h.Constants())

	var names []string
	for _, ty := range h.Types {
		names = append(names, ty.CName())
	}
	assert.ElementsMatch(t, []string{
		"struct_ChromaprintContextPrivate",
		"ChromaprintContext",
		"struct_ChromaprintMatcherContextPrivate",
		"ChromaprintMatcherContext",
		"ChromaprintAlgorithm",
	}, names)
}

func TestParseSignatures(t *testing.T) {
	h := parseFixture(t)

	version, ok := h.Function("chromaprint_get_version")
	require.True(t, ok)
	assert.Equal(t, CType{Base: "char", Pointers: 1}, version.Return)
	assert.Empty(t, version.Params)

	feed, ok := h.Function("chromaprint_feed")
	require.True(t, ok)
	assert.Equal(t, []Param{
		{Name: "ctx", Type: CType{Base: "ChromaprintContext", Pointers: 1}},
		{Name: "data", Type: CType{Base: "int16_t", Pointers: 1}},
		{Name: "size", Type: CType{Base: "int"}},
	}, feed.Params)

	raw, ok := h.Function("chromaprint_get_raw_fingerprint")
	require.True(t, ok)
	assert.Equal(t, "**C.uint32_t", raw.Params[1].Type.GoType())

	dealloc, ok := h.Function("chromaprint_dealloc")
	require.True(t, ok)
	assert.True(t, dealloc.Return.IsVoid())
	assert.Equal(t, "unsafe.Pointer", dealloc.Params[0].Type.GoType())
}

func TestParseWithPlatformDefines(t *testing.T) {
	// Each branch defines CHROMAPRINT_API differently; all must strip cleanly
	for _, defines := range [][]string{
		nil,
		{"__GNUC__=4"},
		{"_WIN32"},
		{"_WIN32", "CHROMAPRINT_NODLL"},
		{"_WIN64", "CHROMAPRINT_API_EXPORTS"},
	} {
		h := parseFixture(t, defines...)
		assert.Len(t, h.Functions, 23, "defines %v", defines)
	}
}

func TestGenerateOneWrapperPerFunction(t *testing.T) {
	h := parseFixture(t)

	src, err := Generate(h, Options{
		CFlags:  []string{"-I/out/install/include"},
		LDFlags: []string{"-L/out/install/lib", "-lchromaprint"},
	})
	require.NoError(t, err)

	decls := funcDecls(t, src)
	assert.Len(t, decls, len(h.Functions))

	out := string(src)
	assert.True(t, strings.HasPrefix(out, "// Code generated by chromabuild from chromaprint.h. DO NOT EDIT."))
	assert.Contains(t, out, "package chromaprint\n")
	assert.Contains(t, out, "#cgo CFLAGS: -I/out/install/include\n")
	assert.Contains(t, out, "#cgo LDFLAGS: -L/out/install/lib -lchromaprint\n")
	assert.Contains(t, out, "#include <chromaprint.h>\n")
	assert.Contains(t, out, `import "unsafe"`)
	assert.Contains(t, out, "CHROMAPRINT_VERSION_MAJOR")
	assert.Contains(t, out, "= C.CHROMAPRINT_VERSION_MAJOR")
	assert.Contains(t, out, "ChromaprintContext")
	assert.Contains(t, out, "= C.struct_ChromaprintContextPrivate")
	assert.Contains(t, out, "func ChromaprintFeed(ctx *C.ChromaprintContext, data *C.int16_t, size C.int) C.int {")
	assert.Contains(t, out, "func ChromaprintDealloc(ptr unsafe.Pointer) {")
	assert.Contains(t, out, "return C.chromaprint_get_version()")
}

func TestGenerateTrimPrefixAndPackage(t *testing.T) {
	h := parseFixture(t)

	src, err := Generate(h, Options{Package: "acoustid", TrimPrefix: "chromaprint_"})
	require.NoError(t, err)

	var names []string
	for _, d := range funcDecls(t, src) {
		names = append(names, d.Name.Name)
	}
	assert.Contains(t, names, "GetVersion")
	assert.Contains(t, names, "GetItemDurationMs")
	assert.Contains(t, string(src), "package acoustid\n")
	assert.NotContains(t, string(src), "#cgo")

	_, err = Generate(h, Options{Package: "not-a-name"})
	assert.Error(t, err)
}

func TestGenerateRejectsVariadic(t *testing.T) {
	h, err := Parse("log.h", []byte("int chromaprint_log(int level, const char *fmt, ...);\n"))
	require.NoError(t, err)
	require.Len(t, h.Functions, 1)
	assert.True(t, h.Functions[0].Variadic)

	src, err := Generate(h, Options{})
	assert.True(t, errors.Is(err, ErrVariadic))
	assert.Nil(t, src)
}

func TestGenerateRenamesReservedParams(t *testing.T) {
	h, err := Parse("x.h", []byte(`
typedef void (*callback_t)(int);
typedef unsigned long long u64, *u64p;
struct point { int x, y; };
int run(int type, const char *, struct point range, callback_t func, unsigned int map[]);
`))
	require.NoError(t, err)

	src, err := Generate(h, Options{Package: "x"})
	require.NoError(t, err)
	out := string(src)

	assert.Contains(t, out, "func Run(type_ C.int, p1 *C.char, range_ C.struct_point, func_ C.callback_t, map_ *C.uint) C.int {")
	assert.Contains(t, out, "= C.callback_t")
	assert.Contains(t, out, "= C.u64p")
	assert.Contains(t, out, "= C.struct_point")
	assert.NotContains(t, out, "unsafe")
}

func TestPreprocessor(t *testing.T) {
	src := `
#define FEATURE_LEVEL 3
#define NEGATIVE (-2)
#define ALIAS FEATURE_LEVEL
#define MAX(a, b) ((a) > (b) ? (a) : (b))
#define LONG_LINE 1 + \
	2
#if FEATURE_LEVEL >= 3 && !defined(DISABLE_FEATURE)
int level_three(void);
#elif FEATURE_LEVEL == 2
int level_two(void);
#else
int level_low(void);
#endif
#ifdef DISABLE_FEATURE
#error feature disabled
#endif
#if 0
int never(void);
#endif
#undef ALIAS
static inline int helper(int x) { return x * 2; }
`
	h, err := Parse("p.h", []byte(src))
	require.NoError(t, err)

	var fns []string
	for _, f := range h.Functions {
		fns = append(fns, f.Name)
	}
	assert.Equal(t, []string{"level_three", "helper"}, fns)
	assert.Equal(t, []Macro{
		{Name: "FEATURE_LEVEL", Value: "3"},
		{Name: "NEGATIVE", Value: "-2"},
		{Name: "LONG_LINE", Value: "3"},
	}, h.Macros)

	_, err = Parse("p.h", []byte(src), "DISABLE_FEATURE")
	assert.ErrorContains(t, err, "feature disabled")

	_, err = Parse("bad.h", []byte("#if 1\nint f(void);\n"))
	assert.Error(t, err)

	_, err = Parse("bad.h", []byte("#endif\n"))
	assert.Error(t, err)
}

func TestExpressionAndStringMacros(t *testing.T) {
	h, err := Parse("flags.h", []byte(`
#define FLAG_SHIFT 3
#define FLAG_MASK (1 << FLAG_SHIFT)
#define FLAG_ALL (FLAG_MASK | 0x1)
#define SEPARATOR ','
#define NAME "chroma" "print"
#define CAST ((int)4)
#define EMPTY
`))
	require.NoError(t, err)

	assert.Equal(t, []Macro{
		{Name: "FLAG_SHIFT", Value: "3"},
		{Name: "FLAG_MASK", Value: "8"},
		{Name: "FLAG_ALL", Value: "9"},
		{Name: "SEPARATOR", Value: "44"},
		{Name: "NAME", Value: "chromaprint", String: true},
	}, h.Macros)

	mask, ok := h.IntMacro("FLAG_MASK")
	require.True(t, ok)
	assert.EqualValues(t, 8, mask)
	_, ok = h.IntMacro("NAME")
	assert.False(t, ok)

	src, err := Generate(h, Options{Package: "flags"})
	require.NoError(t, err)
	out := string(src)
	assert.Contains(t, out, "= C.FLAG_MASK\n")
	assert.Contains(t, out, `= "chromaprint"`)
	assert.NotContains(t, out, "CAST")
}

func TestNamesDoNotShadowImportC(t *testing.T) {
	h, err := Parse("c.h", []byte(`
#define c 1
typedef int C;
int c_(void);
`))
	require.NoError(t, err)

	_, err = Generate(h, Options{Package: "x"})
	require.Error(t, err)

	h, err = Parse("c.h", []byte(`
enum { c };
int C(void);
`))
	require.NoError(t, err)
	_, err = Generate(h, Options{Package: "x"})
	assert.ErrorContains(t, err, "Go name C_")

	h, err = Parse("c.h", []byte("#define c 1\nint version(void);\n"))
	require.NoError(t, err)
	src, err := Generate(h, Options{Package: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(src), "C_ = C.c")
	assert.NotContains(t, string(src), "\tC = ")
	assert.Len(t, funcDecls(t, src), 1)
}

func TestFindHeader(t *testing.T) {
	dir := t.TempDir()
	include := filepath.Join(dir, "include")
	require.NoError(t, os.MkdirAll(include, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(include, "chromaprint.h"), nil, 0644))

	path, err := FindHeader([]string{filepath.Join(dir, "missing"), include}, "chromaprint.h")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(include, "chromaprint.h"), path)

	_, err = FindHeader([]string{dir}, "chromaprint.h")
	assert.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestCamelName(t *testing.T) {
	assert.Equal(t, "ChromaprintGetVersion", camelName("chromaprint_get_version"))
	assert.Equal(t, "Free", camelName("_free"))
	assert.Equal(t, "X2d", camelName("2d"))
	assert.Equal(t, "p0", paramName("", 0))
	assert.Equal(t, "go_", paramName("go", 1))
}
