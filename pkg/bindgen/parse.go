// Package bindgen reads a C header and generates a cgo binding for it.
package bindgen

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrHeaderNotFound indicates the header is on none of the include paths
	ErrHeaderNotFound = errors.New("header not found")

	// ErrVariadic indicates a variadic function, which cgo cannot call
	ErrVariadic = errors.New("variadic functions cannot be called through cgo")
)

// Header is the declaration surface of one C header
type Header struct {
	Name      string // file name used in #include
	Path      string // empty when parsed from memory
	Includes  []string
	Macros    []Macro
	Enums     []Enum
	Types     []TypeDecl
	Functions []Function
}

// Macro is an object-like #define that reduces to a constant. Value is
// the integer literal, or the decoded text when String is set.
type Macro struct {
	Name   string
	Value  string
	String bool
}

// Enum is one enum declaration
type Enum struct {
	Tag       string // empty for anonymous enums
	Typedef   string // set for typedef enum { ... } Name
	Constants []EnumConstant
}

// EnumConstant is one enumerator
type EnumConstant struct {
	Name  string
	Value string // expression as written, empty when implicit
}

// TypeKind says how a type was declared
type TypeKind int

const (
	TypeTypedef TypeKind = iota
	TypeStruct
	TypeUnion
	TypeEnum
)

// TypeDecl is a named type the header declares
type TypeDecl struct {
	Name   string // typedef name or tag
	Kind   TypeKind
	Target CType // typedefs only
	Opaque bool  // struct or union declared without a body
}

// CName returns the name cgo knows the type by, after "C."
func (t TypeDecl) CName() string {
	switch t.Kind {
	case TypeStruct:
		return "struct_" + t.Name
	case TypeUnion:
		return "union_" + t.Name
	case TypeEnum:
		return "enum_" + t.Name
	default:
		return t.Name
	}
}

// Function is a prototype
type Function struct {
	Name     string
	Return   CType
	Params   []Param
	Variadic bool
}

// Param is one function parameter; Name may be empty
type Param struct {
	Name string
	Type CType
}

// ParseFile reads and parses a header from disk
func ParseFile(path string, defines ...string) (*Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	h, err := Parse(filepath.Base(path), data, defines...)
	if err != nil {
		return nil, err
	}
	h.Path = path
	return h, nil
}

// Parse preprocesses src and scans its declarations. defines are
// predefined macros in NAME or NAME=VALUE form; __cplusplus is never set.
func Parse(name string, src []byte, defines ...string) (*Header, error) {
	pp, err := newPreprocessor(defines)
	if err != nil {
		return nil, err
	}

	text, err := pp.run(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	toks, err := tokenize(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	toks = stripExternC(stripAttributes(pp.expand(toks, nil)))

	h := &Header{Name: name, Includes: pp.includes}
	h.Macros = constantMacros(pp)

	stmts, err := statements(toks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	for _, stmt := range stmts {
		if err := h.declare(stmt); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	return h, nil
}

// IntMacro returns the value of an integer macro
func (h *Header) IntMacro(name string) (int64, bool) {
	for _, m := range h.Macros {
		if m.Name == name && !m.String {
			v, err := parseInt(m.Value)
			return v, err == nil
		}
	}
	return 0, false
}

// Constants returns every macro and enumerator name in declaration order
func (h *Header) Constants() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, m := range h.Macros {
		add(m.Name)
	}
	for _, e := range h.Enums {
		for _, c := range e.Constants {
			add(c.Name)
		}
	}
	return names
}

// Function returns the named prototype
func (h *Header) Function(name string) (Function, bool) {
	for _, f := range h.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return Function{}, false
}

func constantMacros(pp *preprocessor) []Macro {
	var out []Macro
	for _, name := range pp.order {
		m, ok := pp.macros[name]
		if !ok || m.function || m.builtin || strings.HasPrefix(name, "__") {
			continue
		}
		if v := numericValue(pp, m.body, 0); v != "" {
			out = append(out, Macro{Name: name, Value: v})
		} else if v, ok := pp.constExpr(m.body); ok {
			out = append(out, Macro{Name: name, Value: strconv.FormatInt(v, 10)})
		} else if v, ok := stringValue(pp.expand(m.body, nil)); ok {
			out = append(out, Macro{Name: name, Value: v, String: true})
		}
	}
	return out
}

// stringValue decodes a run of adjacent string literals
func stringValue(body []token) (string, bool) {
	if len(body) == 0 {
		return "", false
	}
	var sb strings.Builder
	for _, t := range body {
		if t.kind != tokString {
			return "", false
		}
		s, err := strconv.Unquote(t.text)
		if err != nil {
			return "", false
		}
		sb.WriteString(s)
	}
	return sb.String(), true
}

// numericValue returns the literal a macro body reduces to, or ""
func numericValue(pp *preprocessor, body []token, depth int) string {
	for len(body) >= 2 && body[0].is("(") && body[len(body)-1].is(")") {
		body = body[1 : len(body)-1]
	}

	sign := ""
	if len(body) == 2 && (body[0].is("-") || body[0].is("+")) {
		sign = strings.TrimPrefix(body[0].text, "+")
		body = body[1:]
	}
	if len(body) != 1 {
		return ""
	}

	switch body[0].kind {
	case tokNumber:
		return sign + body[0].text
	case tokIdent:
		m, ok := pp.macros[body[0].text]
		if !ok || m.function || depth > 8 {
			return ""
		}
		if v := numericValue(pp, m.body, depth+1); v != "" {
			if sign == "-" {
				return "-" + strings.TrimPrefix(v, "-")
			}
			return v
		}
	}
	return ""
}

// stripAttributes drops compiler annotations with their argument lists
func stripAttributes(toks []token) []token {
	var out []token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind == tokIdent {
			switch t.text {
			case "__attribute__", "__attribute", "__declspec", "__asm__", "__asm", "asm":
				i = skipParens(toks, i+1)
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// skipParens returns the index of the ")" closing the group starting at i,
// or i-1 when no group starts there
func skipParens(toks []token, i int) int {
	if i >= len(toks) || !toks[i].is("(") {
		return i - 1
	}
	depth := 0
	for ; i < len(toks); i++ {
		switch {
		case toks[i].is("("):
			depth++
		case toks[i].is(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(toks)
}

// stripExternC removes linkage specifications; the unmatched closing brace
// they leave behind is dropped by statements
func stripExternC(toks []token) []token {
	var out []token
	for i := 0; i < len(toks); i++ {
		if toks[i].kind == tokIdent && toks[i].text == "extern" &&
			i+1 < len(toks) && toks[i+1].kind == tokString {
			i++
			if i+1 < len(toks) && toks[i+1].is("{") {
				i++
			}
			continue
		}
		out = append(out, toks[i])
	}
	return out
}

// statements splits the token stream at top-level semicolons. An inline
// function definition ends at its closing brace; only the prototype is kept.
func statements(toks []token) ([][]token, error) {
	var stmts [][]token
	var cur []token
	braces, parens := 0, 0
	bodyStart := -1

	for _, t := range toks {
		switch {
		case t.is("("):
			parens++
		case t.is(")"):
			parens--
		case t.is("{"):
			if braces == 0 && parens == 0 && len(cur) > 0 && cur[len(cur)-1].is(")") {
				bodyStart = len(cur)
			}
			braces++
		case t.is("}"):
			if braces == 0 {
				// Closing brace of an extern "C" block
				continue
			}
			braces--
			if braces == 0 && bodyStart >= 0 {
				stmts = append(stmts, cur[:bodyStart])
				cur, bodyStart = nil, -1
				continue
			}
		case t.is(";") && braces == 0 && parens == 0:
			if len(cur) > 0 {
				stmts = append(stmts, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, t)
	}

	if len(cur) > 0 {
		return nil, fmt.Errorf("unterminated declaration %q", render(cur))
	}
	return stmts, nil
}

// splitTop splits toks at top-level commas
func splitTop(toks []token) [][]token {
	var parts [][]token
	var cur []token
	depth := 0
	for _, t := range toks {
		switch {
		case t.is("("), t.is("{"), t.is("["):
			depth++
		case t.is(")"), t.is("}"), t.is("]"):
			depth--
		case t.is(",") && depth == 0:
			parts = append(parts, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	return append(parts, cur)
}

func skipQualifiers(toks []token) []token {
	for len(toks) > 0 && toks[0].kind == tokIdent && qualifiers[toks[0].text] {
		toks = toks[1:]
	}
	return toks
}

func indexOf(toks []token, text string) int {
	for i, t := range toks {
		if t.is(text) {
			return i
		}
	}
	return -1
}

// matching returns the index of the bracket closing toks[open]
func matching(toks []token, open int) int {
	closer := map[string]string{"(": ")", "{": "}", "[": "]"}[toks[open].text]
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case toks[i].is(toks[open].text):
			depth++
		case toks[i].is(closer):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (h *Header) declare(stmt []token) error {
	if len(stmt) > 0 && stmt[0].kind == tokIdent && stmt[0].text == "typedef" {
		return h.declareTypedef(stmt[1:])
	}

	body := skipQualifiers(stmt)
	if len(body) == 0 {
		return nil
	}

	// Functions are recognised by a parameter list not preceded by "(*"
	if p := indexOf(body, "("); p > 0 && indexOf(body, "{") < 0 {
		if p+1 < len(body) && body[p+1].is("*") || body[p-1].kind != tokIdent {
			// Function pointer variable
			return nil
		}
		return h.declareFunction(body, p)
	}

	if body[0].kind == tokIdent {
		switch body[0].text {
		case "struct", "union", "enum":
			return h.declareTagged(body)
		}
	}

	// Variable declarations are not bound
	return nil
}

func kindOf(word string) TypeKind {
	switch word {
	case "struct":
		return TypeStruct
	case "union":
		return TypeUnion
	default:
		return TypeEnum
	}
}

func (h *Header) addType(t TypeDecl) {
	for i, existing := range h.Types {
		if existing.Kind == t.Kind && existing.Name == t.Name {
			// A later definition completes an earlier forward declaration
			if existing.Opaque && !t.Opaque {
				h.Types[i] = t
			}
			return
		}
	}
	h.Types = append(h.Types, t)
}

// declareTagged handles "struct X;", "struct X { ... }" and "enum X { ... }"
func (h *Header) declareTagged(toks []token) error {
	_, err := h.tagged(toks, "")
	return err
}

// tagged records a struct/union/enum head and reports the tokens that
// follow it along with the cgo base name of the declared type
func (h *Header) tagged(toks []token, typedefName string) (rest []token, err error) {
	kindWord := toks[0].text
	toks = toks[1:]

	tag := ""
	if len(toks) > 0 && toks[0].kind == tokIdent {
		tag = toks[0].text
		toks = toks[1:]
	}

	if len(toks) == 0 || !toks[0].is("{") {
		if tag == "" {
			return nil, fmt.Errorf("anonymous %s without a body", kindWord)
		}
		h.addType(TypeDecl{Name: tag, Kind: kindOf(kindWord), Opaque: kindWord != "enum"})
		return toks, nil
	}

	end := matching(toks, 0)
	if end < 0 {
		return nil, fmt.Errorf("unbalanced braces in %s %s", kindWord, tag)
	}
	if tag != "" {
		h.addType(TypeDecl{Name: tag, Kind: kindOf(kindWord)})
	}
	if kindWord == "enum" {
		h.Enums = append(h.Enums, enumBody(tag, typedefName, toks[1:end]))
	}
	return toks[end+1:], nil
}

func enumBody(tag, typedefName string, body []token) Enum {
	e := Enum{Tag: tag, Typedef: typedefName}
	for _, part := range splitTop(body) {
		if len(part) == 0 || part[0].kind != tokIdent {
			continue
		}
		c := EnumConstant{Name: part[0].text}
		if len(part) > 2 && part[1].is("=") {
			c.Value = render(part[2:])
		}
		e.Constants = append(e.Constants, c)
	}
	return e
}

func (h *Header) declareTypedef(toks []token) error {
	toks = skipQualifiers(toks)
	if len(toks) == 0 {
		return fmt.Errorf("empty typedef")
	}

	// typedef struct|union|enum [Tag] [{ ... }] Name, *PName
	if toks[0].kind == tokIdent && (toks[0].text == "struct" || toks[0].text == "union" || toks[0].text == "enum") {
		names := typedefNames(toks)
		first := ""
		if len(names) > 0 {
			first = names[0]
		}

		rest, err := h.tagged(toks, first)
		if err != nil {
			return err
		}

		base := ""
		if len(toks) > 1 && toks[1].kind == tokIdent {
			base = toks[0].text + "_" + toks[1].text
		}
		for _, part := range splitTop(rest) {
			d, err := parseDeclarator(append([]token{{tokIdent, "int"}}, part...))
			if err != nil || d.Name == "" {
				return fmt.Errorf("typedef %q: missing name", render(toks))
			}
			// Anonymous aggregates are only reachable through the typedef
			d.Type.Base = base
			if base == "" {
				d.Type.Base = d.Name
			}
			h.addType(TypeDecl{Name: d.Name, Kind: TypeTypedef, Target: d.Type})
		}
		return nil
	}

	parts := splitTop(toks)
	first, err := parseDeclarator(parts[0])
	if err != nil {
		return fmt.Errorf("typedef: %w", err)
	}
	if first.Name == "" {
		return fmt.Errorf("typedef %q: missing name", render(toks))
	}
	h.addType(TypeDecl{Name: first.Name, Kind: TypeTypedef, Target: first.Type})

	for _, part := range parts[1:] {
		d := declarator{Type: CType{Base: first.Type.Base}}
		for _, t := range part {
			switch {
			case t.is("*"):
				d.Type.Pointers++
			case t.kind == tokIdent && !qualifiers[t.text]:
				d.Name = t.text
			}
		}
		if d.Name == "" {
			return fmt.Errorf("typedef %q: missing name", render(toks))
		}
		h.addType(TypeDecl{Name: d.Name, Kind: TypeTypedef, Target: d.Type})
	}
	return nil
}

// typedefNames lists the identifiers declared after an aggregate body
func typedefNames(toks []token) []string {
	start := 2
	if open := indexOf(toks, "{"); open >= 0 {
		end := matching(toks, open)
		if end < 0 {
			return nil
		}
		start = end + 1
	}
	if start > len(toks) {
		return nil
	}

	var names []string
	for _, part := range splitTop(toks[start:]) {
		for i := len(part) - 1; i >= 0; i-- {
			if part[i].kind == tokIdent && !qualifiers[part[i].text] {
				names = append(names, part[i].text)
				break
			}
		}
	}
	return names
}

func (h *Header) declareFunction(toks []token, open int) error {
	end := matching(toks, open)
	if end < 0 {
		return fmt.Errorf("unbalanced parentheses in %q", render(toks))
	}
	if end != len(toks)-1 {
		// Functions returning function pointers and K&R forms are not bound
		return nil
	}

	ret, err := parseDeclarator(toks[:open-1])
	if err != nil {
		return fmt.Errorf("return type of %s: %w", toks[open-1].text, err)
	}
	if ret.Name != "" {
		return fmt.Errorf("cannot read return type of %s in %q", toks[open-1].text, render(toks))
	}

	fn := Function{Name: toks[open-1].text, Return: ret.Type}

	params := toks[open+1 : end]
	if len(params) == 0 || (len(params) == 1 && params[0].kind == tokIdent && params[0].text == "void") {
		h.Functions = append(h.Functions, fn)
		return nil
	}

	for _, part := range splitTop(params) {
		if len(part) == 1 && part[0].is("...") {
			fn.Variadic = true
			continue
		}
		d, err := parseDeclarator(part)
		if err != nil {
			return fmt.Errorf("parameter of %s: %w", fn.Name, err)
		}
		fn.Params = append(fn.Params, Param{Name: d.Name, Type: d.Type})
	}

	h.Functions = append(h.Functions, fn)
	return nil
}
