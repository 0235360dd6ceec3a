package bindgen

import (
	"fmt"
	"strconv"
	"strings"
)

type macro struct {
	name     string
	body     []token
	function bool // function-like macros are recorded but never expanded
	builtin  bool // predefined on the command line
}

type cond struct {
	parent  bool // enclosing block is active
	active  bool // current branch emits
	taken   bool // an earlier branch was already taken
	sawElse bool
}

type preprocessor struct {
	macros   map[string]*macro
	order    []string
	includes []string
	stack    []cond
}

func newPreprocessor(defines []string) (*preprocessor, error) {
	p := &preprocessor{macros: make(map[string]*macro)}
	for _, d := range defines {
		name, value, _ := strings.Cut(d, "=")
		if value == "" && !strings.Contains(d, "=") {
			value = "1"
		}
		body, err := tokenize(value)
		if err != nil {
			return nil, fmt.Errorf("define %s: %w", d, err)
		}
		p.macros[name] = &macro{name: name, body: body, builtin: true}
	}
	return p, nil
}

func (p *preprocessor) active() bool {
	for _, c := range p.stack {
		if !c.active {
			return false
		}
	}
	return true
}

// joinContinuations splices backslash-newline pairs
func joinContinuations(src string) string {
	src = strings.ReplaceAll(src, "\\\r\n", "")
	return strings.ReplaceAll(src, "\\\n", "")
}

// stripComments removes C and C++ comments outside literals. Block comments
// keep their newlines so line structure survives.
func stripComments(src string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(src))

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(src) && src[j] != c && src[j] != '\n' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(src) {
				j = len(src) - 1
			}
			sb.WriteString(src[i : j+1])
			i = j + 1

		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}

		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return "", fmt.Errorf("unterminated comment")
			}
			body := src[i : i+2+end+2]
			sb.WriteByte(' ')
			sb.WriteString(strings.Repeat("\n", strings.Count(body, "\n")))
			i += len(body)

		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), nil
}

// run evaluates directives and returns the text of the active lines
func (p *preprocessor) run(src string) (string, error) {
	src = joinContinuations(src)
	src, err := stripComments(src)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for n, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if p.active() {
				out.WriteString(line)
			}
			out.WriteByte('\n')
			continue
		}

		out.WriteByte('\n')
		if err := p.directive(strings.TrimSpace(trimmed[1:])); err != nil {
			return "", fmt.Errorf("line %d: %w", n+1, err)
		}
	}

	if len(p.stack) > 0 {
		return "", fmt.Errorf("unterminated conditional: %d #endif missing", len(p.stack))
	}
	return out.String(), nil
}

func (p *preprocessor) directive(d string) error {
	i := 0
	for i < len(d) && isIdentPart(d[i]) {
		i++
	}
	name, rest := d[:i], strings.TrimSpace(d[i:])
	active := p.active()

	switch name {
	case "if", "ifdef", "ifndef":
		c := cond{parent: active, taken: !active}
		if active {
			v, err := p.test(name, rest)
			if err != nil {
				return err
			}
			c.active, c.taken = v, v
		}
		p.stack = append(p.stack, c)
		return nil

	case "elif":
		if len(p.stack) == 0 {
			return fmt.Errorf("#elif without #if")
		}
		top := &p.stack[len(p.stack)-1]
		if top.sawElse {
			return fmt.Errorf("#elif after #else")
		}
		if top.taken {
			top.active = false
			return nil
		}
		v, err := p.eval(rest)
		if err != nil {
			return err
		}
		top.active, top.taken = v, v
		return nil

	case "else":
		if len(p.stack) == 0 {
			return fmt.Errorf("#else without #if")
		}
		top := &p.stack[len(p.stack)-1]
		if top.sawElse {
			return fmt.Errorf("duplicate #else")
		}
		top.sawElse = true
		top.active = top.parent && !top.taken
		top.taken = true
		return nil

	case "endif":
		if len(p.stack) == 0 {
			return fmt.Errorf("#endif without #if")
		}
		p.stack = p.stack[:len(p.stack)-1]
		return nil
	}

	if !active {
		return nil
	}

	switch name {
	case "define":
		return p.define(rest)
	case "undef":
		delete(p.macros, rest)
		return nil
	case "include":
		p.includes = append(p.includes, strings.Trim(rest, `<>"`))
		return nil
	case "error":
		return fmt.Errorf("#error %s", rest)
	default:
		// #pragma, #line, #warning, null directive
		return nil
	}
}

func (p *preprocessor) define(rest string) error {
	i := 0
	for i < len(rest) && isIdentPart(rest[i]) {
		i++
	}
	if i == 0 || !isIdentStart(rest[0]) {
		return fmt.Errorf("#define without a name")
	}
	name := rest[:i]

	m := &macro{name: name}
	if i < len(rest) && rest[i] == '(' {
		m.function = true
	} else {
		body, err := tokenize(rest[i:])
		if err != nil {
			return fmt.Errorf("#define %s: %w", name, err)
		}
		m.body = body
	}

	if _, seen := p.macros[name]; !seen {
		p.order = append(p.order, name)
	}
	p.macros[name] = m
	return nil
}

func (p *preprocessor) test(kind, rest string) (bool, error) {
	switch kind {
	case "ifdef":
		_, ok := p.macros[rest]
		return ok, nil
	case "ifndef":
		_, ok := p.macros[rest]
		return !ok, nil
	default:
		return p.eval(rest)
	}
}

// expand replaces object-like macros, never re-expanding a macro inside itself
func (p *preprocessor) expand(toks []token, hiding map[string]bool) []token {
	var out []token
	for _, t := range toks {
		m, ok := p.macros[t.text]
		if t.kind != tokIdent || !ok || m.function || hiding[t.text] {
			out = append(out, t)
			continue
		}
		inner := make(map[string]bool, len(hiding)+1)
		for k := range hiding {
			inner[k] = true
		}
		inner[t.text] = true
		out = append(out, p.expand(m.body, inner)...)
	}
	return out
}

// eval computes a #if / #elif expression
func (p *preprocessor) eval(expr string) (bool, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return false, err
	}

	// defined X and defined(X) are resolved before expansion
	var resolved []token
	for i := 0; i < len(toks); i++ {
		if toks[i].kind != tokIdent || toks[i].text != "defined" {
			resolved = append(resolved, toks[i])
			continue
		}
		var name string
		switch {
		case i+3 < len(toks) && toks[i+1].is("(") && toks[i+3].is(")"):
			name = toks[i+2].text
			i += 3
		case i+1 < len(toks) && toks[i+1].kind == tokIdent:
			name = toks[i+1].text
			i++
		default:
			return false, fmt.Errorf("malformed defined in %q", expr)
		}
		v := "0"
		if _, ok := p.macros[name]; ok {
			v = "1"
		}
		resolved = append(resolved, token{tokNumber, v})
	}

	ep := &exprParser{toks: p.expand(resolved, nil)}
	v, err := ep.ternary()
	if err != nil {
		return false, fmt.Errorf("#if %s: %w", expr, err)
	}
	if ep.pos != len(ep.toks) {
		return false, fmt.Errorf("#if %s: unexpected %q", expr, ep.toks[ep.pos].text)
	}
	return v != 0, nil
}

// constExpr evaluates a macro body as an integer constant expression.
// Bodies that keep an identifier after expansion, such as casts, are not
// constants.
func (p *preprocessor) constExpr(body []token) (int64, bool) {
	toks := p.expand(body, nil)
	if len(toks) == 0 {
		return 0, false
	}
	for _, t := range toks {
		if t.kind == tokIdent || t.kind == tokString {
			return 0, false
		}
	}
	ep := &exprParser{toks: toks}
	v, err := ep.ternary()
	if err != nil || ep.pos != len(toks) {
		return 0, false
	}
	return v, true
}

type exprParser struct {
	toks []token
	pos  int
}

var binaryPrec = map[string]int{
	"||": 1, "&&": 2, "|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (e *exprParser) peek() (token, bool) {
	if e.pos >= len(e.toks) {
		return token{}, false
	}
	return e.toks[e.pos], true
}

func (e *exprParser) ternary() (int64, error) {
	c, err := e.binary(1)
	if err != nil {
		return 0, err
	}
	if t, ok := e.peek(); !ok || !t.is("?") {
		return c, nil
	}
	e.pos++
	a, err := e.ternary()
	if err != nil {
		return 0, err
	}
	if t, ok := e.peek(); !ok || !t.is(":") {
		return 0, fmt.Errorf("missing : in conditional expression")
	}
	e.pos++
	b, err := e.ternary()
	if err != nil {
		return 0, err
	}
	if c != 0 {
		return a, nil
	}
	return b, nil
}

func (e *exprParser) binary(minPrec int) (int64, error) {
	lhs, err := e.unary()
	if err != nil {
		return 0, err
	}

	for {
		t, ok := e.peek()
		if !ok || t.kind != tokPunct {
			return lhs, nil
		}
		prec, isOp := binaryPrec[t.text]
		if !isOp || prec < minPrec {
			return lhs, nil
		}
		e.pos++

		rhs, err := e.binary(prec + 1)
		if err != nil {
			return 0, err
		}
		if lhs, err = apply(t.text, lhs, rhs); err != nil {
			return 0, err
		}
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func apply(op string, a, b int64) (int64, error) {
	switch op {
	case "||":
		return boolInt(a != 0 || b != 0), nil
	case "&&":
		return boolInt(a != 0 && b != 0), nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "&":
		return a & b, nil
	case "==":
		return boolInt(a == b), nil
	case "!=":
		return boolInt(a != b), nil
	case "<":
		return boolInt(a < b), nil
	case "<=":
		return boolInt(a <= b), nil
	case ">":
		return boolInt(a > b), nil
	case ">=":
		return boolInt(a >= b), nil
	case "<<":
		return a << uint64(b), nil
	case ">>":
		return a >> uint64(b), nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "%":
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		if op == "/" {
			return a / b, nil
		}
		return a % b, nil
	}
	return 0, fmt.Errorf("unknown operator %s", op)
}

func (e *exprParser) unary() (int64, error) {
	t, ok := e.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	e.pos++

	switch {
	case t.is("!"), t.is("-"), t.is("+"), t.is("~"):
		v, err := e.unary()
		if err != nil {
			return 0, err
		}
		switch t.text {
		case "!":
			return boolInt(v == 0), nil
		case "-":
			return -v, nil
		case "~":
			return ^v, nil
		}
		return v, nil

	case t.is("("):
		v, err := e.ternary()
		if err != nil {
			return 0, err
		}
		if n, ok := e.peek(); !ok || !n.is(")") {
			return 0, fmt.Errorf("missing )")
		}
		e.pos++
		return v, nil

	case t.kind == tokNumber:
		return parseInt(t.text)

	case t.kind == tokChar:
		s, err := strconv.Unquote(t.text)
		if err != nil || len(s) == 0 {
			return 0, fmt.Errorf("bad character literal %s", t.text)
		}
		return int64(s[0]), nil

	case t.kind == tokIdent:
		// Identifiers left after expansion evaluate to 0
		return 0, nil
	}

	return 0, fmt.Errorf("unexpected %q", t.text)
}

// parseInt reads a C integer literal with optional u/l suffixes
func parseInt(lit string) (int64, error) {
	s := strings.TrimRight(lit, "uUlL")
	v, err := strconv.ParseInt(s, 0, 64)
	if err == nil {
		return v, nil
	}
	u, uerr := strconv.ParseUint(s, 0, 64)
	if uerr != nil {
		return 0, fmt.Errorf("bad integer literal %s", lit)
	}
	return int64(u), nil
}
