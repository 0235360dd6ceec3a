package bindgen

import (
	"fmt"
	"strings"
)

// CType is a C type reduced to what cgo needs: a base name and pointer depth
type CType struct {
	Base     string // cgo spelling after "C.": "int", "uint32_t", "struct_Foo", "Foo"
	Pointers int
	FuncPtr  bool // pointer to function, passed as *[0]byte
}

// IsVoid reports a plain void
func (t CType) IsVoid() bool {
	return t.Base == "void" && t.Pointers == 0 && !t.FuncPtr
}

// GoType renders the type as cgo sees it
func (t CType) GoType() string {
	if t.FuncPtr {
		return "*[0]byte"
	}
	if t.Base == "void" {
		if t.Pointers == 0 {
			return ""
		}
		return strings.Repeat("*", t.Pointers-1) + "unsafe.Pointer"
	}
	return strings.Repeat("*", t.Pointers) + "C." + t.Base
}

// String renders the C spelling for docs and errors
func (t CType) String() string {
	base := t.Base
	switch {
	case strings.HasPrefix(base, "struct_"):
		base = "struct " + strings.TrimPrefix(base, "struct_")
	case strings.HasPrefix(base, "enum_"):
		base = "enum " + strings.TrimPrefix(base, "enum_")
	case strings.HasPrefix(base, "union_"):
		base = "union " + strings.TrimPrefix(base, "union_")
	case cgoAlias[base] != "":
		base = cgoAlias[base]
	}
	if t.FuncPtr {
		return base + " (*)()"
	}
	if t.Pointers == 0 {
		return base
	}
	return base + " " + strings.Repeat("*", t.Pointers)
}

// C spellings of cgo's abbreviated builtin names
var cgoAlias = map[string]string{
	"uint":      "unsigned int",
	"uchar":     "unsigned char",
	"schar":     "signed char",
	"ushort":    "unsigned short",
	"ulong":     "unsigned long",
	"longlong":  "long long",
	"ulonglong": "unsigned long long",
}

var qualifiers = map[string]bool{
	"const": true, "volatile": true, "restrict": true, "__restrict": true, "__restrict__": true,
	"extern": true, "static": true, "inline": true, "__inline": true, "__inline__": true,
	"register": true, "__extension__": true, "__cdecl": true, "__stdcall": true,
}

var builtinWords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true, "_Bool": true,
}

// builtinName maps a sequence of builtin type words to cgo's name
func builtinName(words []string) (string, error) {
	var unsigned, signed bool
	var longs, shorts int
	var base string

	for _, w := range words {
		switch w {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "long":
			longs++
		case "short":
			shorts++
		case "int":
			if base == "" {
				base = "int"
			}
		default:
			if base != "" && base != "int" {
				return "", fmt.Errorf("conflicting type words %v", words)
			}
			base = w
		}
	}

	switch {
	case base == "char":
		if unsigned {
			return "uchar", nil
		}
		if signed {
			return "schar", nil
		}
		return "char", nil
	case base == "void", base == "float", base == "_Bool":
		return base, nil
	case base == "double":
		return "double", nil
	}

	name := "int"
	switch {
	case shorts > 0:
		name = "short"
	case longs == 1:
		name = "long"
	case longs >= 2:
		name = "longlong"
	}
	if unsigned {
		if name == "int" {
			return "uint", nil
		}
		return "u" + name, nil
	}
	return name, nil
}

// declarator is one parsed "type name" pair
type declarator struct {
	Name string
	Type CType
}

// parseDeclarator reads tokens like "const int16_t *data", "uint32_t **",
// "struct Foo *ctx", "int values[]" or "void (*cb)(int)"
func parseDeclarator(toks []token) (declarator, error) {
	// Function pointer: ret (*name)(params)
	for i, t := range toks {
		if t.is("(") && i+1 < len(toks) && toks[i+1].is("*") {
			d := declarator{Type: CType{FuncPtr: true}}
			if i+2 < len(toks) && toks[i+2].kind == tokIdent {
				d.Name = toks[i+2].text
			}
			return d, nil
		}
	}

	var words []string
	var d declarator
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.kind == tokIdent && qualifiers[t.text]:
		case t.kind == tokIdent:
			words = append(words, t.text)
		case t.is("*"):
			d.Type.Pointers++
		case t.is("["):
			// Array parameters decay to pointers
			for i < len(toks) && !toks[i].is("]") {
				i++
			}
			d.Type.Pointers++
		default:
			return d, fmt.Errorf("unexpected %q in declaration %q", t.text, render(toks))
		}
	}

	if len(words) == 0 {
		return d, fmt.Errorf("missing type in %q", render(toks))
	}

	// struct/enum/union Tag [name]
	switch words[0] {
	case "struct", "enum", "union":
		if len(words) < 2 {
			return d, fmt.Errorf("anonymous %s in %q", words[0], render(toks))
		}
		d.Type.Base = words[0] + "_" + words[1]
		if len(words) > 2 {
			d.Name = words[2]
		}
		if len(words) > 3 {
			return d, fmt.Errorf("unexpected %q in %q", words[3], render(toks))
		}
		return d, nil
	}

	// A trailing word that is not a builtin names the declarator,
	// unless it is the only word
	typeWords := words
	if len(words) > 1 && !builtinWords[words[len(words)-1]] {
		d.Name = words[len(words)-1]
		typeWords = words[:len(words)-1]
	}

	allBuiltin := true
	for _, w := range typeWords {
		if !builtinWords[w] {
			allBuiltin = false
		}
	}

	if allBuiltin {
		base, err := builtinName(typeWords)
		if err != nil {
			return d, err
		}
		d.Type.Base = base
		return d, nil
	}

	if len(typeWords) != 1 {
		return d, fmt.Errorf("cannot read type %q", strings.Join(typeWords, " "))
	}
	d.Type.Base = typeWords[0]
	return d, nil
}
