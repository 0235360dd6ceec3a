package directive

import "strings"

// CFlags renders the include directives as #cgo CFLAGS arguments
func CFlags(ds []Directive) []string {
	var flags []string
	for _, d := range Filter(ds, KindInclude) {
		flags = append(flags, quote("-I"+d.Value))
	}
	return flags
}

// LDFlags renders search paths, libraries and frameworks as #cgo LDFLAGS
// arguments, in that order
func LDFlags(ds []Directive) []string {
	var flags []string
	for _, d := range Filter(ds, KindLinkSearch) {
		flags = append(flags, quote("-L"+d.Value))
	}
	for _, d := range Filter(ds, KindLinkLib) {
		flags = append(flags, "-l"+d.Value)
	}
	for _, d := range Filter(ds, KindLinkFramework) {
		flags = append(flags, "-framework", d.Value)
	}
	return flags
}

// quote protects arguments with spaces; cgo splits #cgo lines like a shell
func quote(arg string) string {
	if !strings.ContainsAny(arg, " \t'\"") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
