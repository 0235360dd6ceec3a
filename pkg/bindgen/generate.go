package bindgen

import (
	"bytes"
	"fmt"
	"go/format"
	gotoken "go/token"
	"strconv"
	"strings"
	"unicode"
)

// DefaultPackage is the package name of generated bindings
const DefaultPackage = "chromaprint"

// Options controls Generate
type Options struct {
	Package    string   // Go package clause, DefaultPackage when empty
	Include    string   // #include spelling, the header name when empty
	CFlags     []string // #cgo CFLAGS
	LDFlags    []string // #cgo LDFLAGS
	TrimPrefix string   // removed from C function names before CamelCasing
}

// Generate renders a gofmt'ed cgo file exposing every constant, type and
// function of h. Nothing is returned when any declaration cannot be bound.
func Generate(h *Header, opts Options) ([]byte, error) {
	if opts.Package == "" {
		opts.Package = DefaultPackage
	}
	if opts.Include == "" {
		opts.Include = h.Name
	}
	if !gotoken.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("invalid package name %q", opts.Package)
	}

	for _, f := range h.Functions {
		if f.Variadic {
			return nil, fmt.Errorf("%w: %s", ErrVariadic, f.Name)
		}
	}

	g := &generator{used: make(map[string]string)}
	types := g.types(h)
	consts, err := g.constants(h)
	if err != nil {
		return nil, err
	}
	funcs, err := g.functions(h, opts.TrimPrefix)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by chromabuild from %s. DO NOT EDIT.\n\n", h.Name)
	fmt.Fprintf(&buf, "package %s\n\n", opts.Package)

	buf.WriteString("/*\n")
	if len(opts.CFlags) > 0 {
		fmt.Fprintf(&buf, "#cgo CFLAGS: %s\n", strings.Join(opts.CFlags, " "))
	}
	if len(opts.LDFlags) > 0 {
		fmt.Fprintf(&buf, "#cgo LDFLAGS: %s\n", strings.Join(opts.LDFlags, " "))
	}
	fmt.Fprintf(&buf, "#include <%s>\n", opts.Include)
	buf.WriteString("*/\nimport \"C\"\n\n")

	if g.unsafe {
		buf.WriteString("import \"unsafe\"\n\n")
	}

	if len(consts) > 0 {
		buf.WriteString("const (\n")
		for _, c := range consts {
			fmt.Fprintf(&buf, "\t%s = %s\n", c[0], c[1])
		}
		buf.WriteString(")\n\n")
	}

	if len(types) > 0 {
		buf.WriteString("type (\n")
		for _, t := range types {
			fmt.Fprintf(&buf, "\t%s = C.%s\n", t[0], t[1])
		}
		buf.WriteString(")\n\n")
	}

	for _, f := range funcs {
		buf.WriteString(f)
		buf.WriteString("\n")
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated source: %w", err)
	}
	return out, nil
}

type generator struct {
	used   map[string]string // Go name -> C name
	unsafe bool
}

func (g *generator) claim(goName, cName string) error {
	if prev, ok := g.used[goName]; ok {
		return fmt.Errorf("%s and %s both map to Go name %s", prev, cName, goName)
	}
	g.used[goName] = cName
	return nil
}

// types returns alias pairs. Typedefs take precedence over a tag of the
// same name, as in "typedef struct Foo Foo".
func (g *generator) types(h *Header) [][2]string {
	var out [][2]string
	for _, pass := range []bool{true, false} {
		for _, t := range h.Types {
			if (t.Kind == TypeTypedef) != pass {
				continue
			}
			name := goName(exportName(t.Name))
			if _, taken := g.used[name]; taken {
				continue
			}
			g.used[name] = t.CName()
			out = append(out, [2]string{name, t.CName()})
		}
	}
	return out
}

// constants returns name and value pairs. String macros are written as Go
// literals; everything else goes through cgo.
func (g *generator) constants(h *Header) ([][2]string, error) {
	literals := make(map[string]string)
	for _, m := range h.Macros {
		if m.String {
			literals[m.Name] = strconv.Quote(m.Value)
		}
	}

	var out [][2]string
	for _, c := range h.Constants() {
		name := goName(exportName(c))
		if err := g.claim(name, c); err != nil {
			return nil, err
		}
		value, ok := literals[c]
		if !ok {
			value = "C." + c
		}
		out = append(out, [2]string{name, value})
	}
	return out, nil
}

func (g *generator) functions(h *Header, trim string) ([]string, error) {
	var out []string
	for _, f := range h.Functions {
		name := goName(camelName(strings.TrimPrefix(f.Name, trim)))
		if err := g.claim(name, f.Name); err != nil {
			return nil, err
		}
		out = append(out, g.wrapper(name, f))
	}
	return out, nil
}

func (g *generator) goType(t CType) string {
	s := t.GoType()
	if strings.Contains(s, "unsafe.") {
		g.unsafe = true
	}
	return s
}

func (g *generator) wrapper(name string, f Function) string {
	var params, args []string
	seen := make(map[string]bool)

	for i, p := range f.Params {
		pn := paramName(p.Name, i)
		if seen[pn] {
			pn = fmt.Sprintf("%s%d", pn, i)
		}
		seen[pn] = true
		params = append(params, pn+" "+g.goType(p.Type))
		args = append(args, pn)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s wraps %s.\n", name, f.Name)
	fmt.Fprintf(&sb, "func %s(%s)", name, strings.Join(params, ", "))

	call := fmt.Sprintf("C.%s(%s)", f.Name, strings.Join(args, ", "))
	if f.Return.IsVoid() {
		fmt.Fprintf(&sb, " {\n\t%s\n}\n", call)
	} else {
		fmt.Fprintf(&sb, " %s {\n\treturn %s\n}\n", g.goType(f.Return), call)
	}
	return sb.String()
}

// camelName turns chromaprint_get_version into ChromaprintGetVersion
func camelName(s string) string {
	var sb strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		sb.WriteString(string(r))
	}
	name := sb.String()
	if name == "" || !unicode.IsLetter([]rune(name)[0]) {
		name = "X" + name
	}
	return name
}

// exportName capitalises the first letter, keeping the C spelling otherwise
func exportName(s string) string {
	s = strings.TrimLeft(s, "_")
	if s == "" {
		return "X"
	}
	r := []rune(s)
	if !unicode.IsLetter(r[0]) {
		return "X" + s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// goName renames package-level identifiers that would shadow import "C"
func goName(name string) string {
	if name == "C" {
		return "C_"
	}
	return name
}

// paramName keeps C parameter names unless Go reserves them
func paramName(name string, i int) string {
	switch {
	case name == "":
		return fmt.Sprintf("p%d", i)
	case gotoken.IsKeyword(name), name == "C", name == "unsafe", name == "_":
		return name + "_"
	default:
		return name
	}
}
