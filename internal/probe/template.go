package probe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

// Kind selects how a definition's snippet becomes a complete program.
type Kind int

const (
	// KindProgram uses the snippet verbatim.
	KindProgram Kind = iota
	// KindType checks that the snippet names a type.
	KindType
	// KindExpression checks that the snippet is a valid expression.
	KindExpression
	// KindTypedExpression checks that the snippet is an expression of
	// the definition's type.
	KindTypedExpression
)

var kindNames = map[Kind]string{
	KindProgram:         "program",
	KindType:            "type",
	KindExpression:      "expression",
	KindTypedExpression: "typed_expression",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind maps a definition value to a Kind. Empty means program.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindProgram, nil
	}

	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}

	return 0, fmt.Errorf("unknown kind %q", s)
}

// Expand renders snippet as a complete program for flavor.
func Expand(flavor toolchain.Flavor, kind Kind, snippet, typ string) (string, error) {
	if kind == KindTypedExpression && strings.TrimSpace(typ) == "" {
		return "", errors.New("typed_expression requires a type")
	}

	if kind != KindTypedExpression && typ != "" {
		return "", fmt.Errorf("type is only valid for typed_expression, not %s", kind)
	}

	if kind == KindProgram {
		return snippet, nil
	}

	var tmpl map[Kind]string
	switch flavor {
	case toolchain.Rustc:
		tmpl = rustcTemplates
	case toolchain.CC:
		tmpl = ccTemplates
	case toolchain.Go:
		tmpl = goTemplates
	default:
		return "", fmt.Errorf("no templates for %s", flavor)
	}

	if kind == KindTypedExpression {
		return fmt.Sprintf(tmpl[kind], typ, snippet), nil
	}

	return fmt.Sprintf(tmpl[kind], snippet), nil
}

var rustcTemplates = map[Kind]string{
	KindType:            "fn probe_fun(_: Box<%s>) {} fn main() {}\n",
	KindExpression:      "fn main() { let _ = %s; }\n",
	KindTypedExpression: "fn main() { let _: %s = %s; }\n",
}

var ccTemplates = map[Kind]string{
	KindType:            "void probe_fun(%s *p) { (void)p; }\nint main(void) { return 0; }\n",
	KindExpression:      "int main(void) { (void)(%s); return 0; }\n",
	KindTypedExpression: "int main(void) { %s v = %s; (void)v; return 0; }\n",
}

var goTemplates = map[Kind]string{
	KindType:            "package main\n\nfunc probeFun(_ *%s) {}\n\nfunc main() {}\n",
	KindExpression:      "package main\n\nfunc main() {\n\t_ = %s\n}\n",
	KindTypedExpression: "package main\n\nfunc main() {\n\tvar _ %s = %s\n}\n",
}
