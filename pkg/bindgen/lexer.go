package bindgen

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokChar
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

func (t token) is(text string) bool {
	return t.kind == tokPunct && t.text == text
}

// Longest first
var punctuators = []string{
	"...", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "->", "##",
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// tokenize splits preprocessed C text into tokens
func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0

	for i < len(src) {
		c := src[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			i++

		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, src[i:j]})
			i = j

		case c >= '0' && c <= '9', c == '.' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9':
			j := i + 1
			for j < len(src) && (isIdentPart(src[j]) || src[j] == '.' ||
				((src[j] == '+' || src[j] == '-') && (src[j-1] == 'e' || src[j-1] == 'E' || src[j-1] == 'p' || src[j-1] == 'P'))) {
				j++
			}
			toks = append(toks, token{tokNumber, src[i:j]})
			i = j

		case c == '"' || c == '\'':
			j := i + 1
			for j < len(src) && src[j] != c {
				if src[j] == '\\' {
					j++
				}
				if j < len(src) && src[j] == '\n' {
					return nil, fmt.Errorf("unterminated literal")
				}
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("unterminated literal")
			}
			kind := tokString
			if c == '\'' {
				kind = tokChar
			}
			toks = append(toks, token{kind, src[i : j+1]})
			i = j + 1

		default:
			matched := false
			for _, p := range punctuators {
				if strings.HasPrefix(src[i:], p) {
					toks = append(toks, token{tokPunct, p})
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				toks = append(toks, token{tokPunct, string(c)})
				i++
			}
		}
	}

	return toks, nil
}

// render joins tokens back into C text for error messages
func render(toks []token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && t.kind != tokPunct && toks[i-1].kind != tokPunct {
			sb.WriteByte(' ')
		} else if i > 0 && (t.is("*") || toks[i-1].is(",")) {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.text)
	}
	return sb.String()
}
