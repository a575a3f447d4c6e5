package toolchain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/Norgate-AV/featprobe/internal/utils"
)

// Flavor identifies the compiler family being probed. The set is closed:
// every flavor-specific behaviour is a switch over these values.
type Flavor int

const (
	Rustc Flavor = iota
	CC
	Go
)

var flavorNames = map[Flavor]string{
	Rustc: "rustc",
	CC:    "cc",
	Go:    "go",
}

func (f Flavor) String() string {
	if name, ok := flavorNames[f]; ok {
		return name
	}

	return fmt.Sprintf("Flavor(%d)", f)
}

// Flavors returns every supported flavor in declaration order.
func Flavors() []Flavor {
	return []Flavor{Rustc, CC, Go}
}

// ParseFlavor maps a configuration value to a Flavor.
func ParseFlavor(s string) (Flavor, error) {
	for _, f := range Flavors() {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}

	return 0, fmt.Errorf("unknown compiler flavor %q (want rustc, cc or go)", s)
}

// CompilerEnv is the environment variable consulted for the default compiler,
// or "" when the flavor has none.
func (f Flavor) CompilerEnv() string {
	switch f {
	case Rustc:
		return "RUSTC"
	case CC:
		return "CC"
	}

	return ""
}

// DefaultCompiler is the binary used when neither configuration nor
// CompilerEnv names one.
func (f Flavor) DefaultCompiler() string {
	switch f {
	case Rustc:
		return "rustc"
	case CC:
		return "cc"
	case Go:
		return "go"
	}

	return ""
}

// SourceExt is the file extension the compiler expects for a snippet.
func (f Flavor) SourceExt() string {
	switch f {
	case Rustc:
		return ".rs"
	case CC:
		return ".c"
	case Go:
		return ".go"
	}

	return ".txt"
}

// EnvKeys lists environment variables that change what the compiler accepts
// or generates, and therefore belong in the fingerprint.
func (f Flavor) EnvKeys() []string {
	switch f {
	case Rustc:
		return []string{"RUSTC_BOOTSTRAP", "RUSTC_WRAPPER"}
	case CC:
		return []string{"CPATH", "C_INCLUDE_PATH", "GCC_EXEC_PREFIX"}
	case Go:
		return []string{"GOOS", "GOARCH", "GOFLAGS", "CGO_ENABLED", "GOEXPERIMENT"}
	}

	return nil
}

// ValidTarget reports whether t is a target this flavor accepts.
func (f Flavor) ValidTarget(t string) bool {
	if f == Go {
		_, _, ok := utils.ParseGoTarget(t)
		return ok
	}

	_, ok := utils.ParseTriple(t)
	return ok
}

// rustcEmitKinds are the --emit kinds a probe may be compiled to.
var rustcEmitKinds = []string{"obj", "metadata", "link", "asm", "llvm-ir", "llvm-bc", "mir", "dep-info"}

// DefaultEmit is the emit kind used when none is configured.
func (f Flavor) DefaultEmit() string {
	if f == Rustc {
		return "obj"
	}

	return ""
}

// EmitKind normalises a configured emit kind; empty selects DefaultEmit.
func (f Flavor) EmitKind(kind string) string {
	if kind == "" {
		return f.DefaultEmit()
	}

	return kind
}

// ValidEmit reports whether kind can be used with this flavor. Only rustc
// takes an emit kind; the other flavors accept the empty value.
func (f Flavor) ValidEmit(kind string) bool {
	if kind == "" {
		return true
	}

	return f == Rustc && slices.Contains(rustcEmitKinds, kind)
}

// CompileArgs returns the arguments for a no-op trial compilation of source,
// writing any output into scratch. Extra arguments precede the source file.
func (f Flavor) CompileArgs(target, emit, scratch, source string, extra []string) []string {
	var args []string

	switch f {
	case Rustc:
		emit = f.EmitKind(emit)
		out := filepath.Join(scratch, "probe.out")
		if emit == "obj" {
			out = filepath.Join(scratch, "probe.o")
		}

		args = append(args, "--crate-name", "probe", "--crate-type", "bin", "--emit="+emit, "-o", out)
		if target != "" {
			args = append(args, "--target", target)
		}
	case CC:
		args = append(args, "-c", "-o", filepath.Join(scratch, "probe.o"))
		if target != "" {
			args = append(args, "--target="+target)
		}
	case Go:
		args = append(args, "build", "-o", filepath.Join(scratch, "probe.out"))
	}

	args = append(args, extra...)
	return append(args, source)
}

// DebugArgs are extra compiler arguments for verbose runs.
func (f Flavor) DebugArgs() []string {
	if f == Rustc {
		return []string{"--verbose"}
	}

	return nil
}

// CompileEnv returns environment overrides needed to honour target. With
// debug set, rustc also gets full backtraces.
func (f Flavor) CompileEnv(target string, debug bool) []string {
	var env []string

	if f == Go && target != "" {
		if goos, goarch, ok := utils.ParseGoTarget(target); ok {
			env = append(env, "GOOS="+goos, "GOARCH="+goarch)
		}
	}

	if debug && f == Rustc {
		env = append(env, "RUST_BACKTRACE=full")
	}

	return env
}

var (
	rustcError = regexp.MustCompile(`(?m)^error(?:\[E\d{4}\])?: `)
	ccError    = regexp.MustCompile(`(?m)(?:^|:\s)(?:fatal )?error: `)
	goError    = regexp.MustCompile(`(?m)^\S+\.go:\d+(?::\d+)?: `)

	rustcICE = regexp.MustCompile(`(?i)internal compiler error|thread 'rustc' panicked`)
	ccICE    = regexp.MustCompile(`(?i)internal compiler error`)
	goICE    = regexp.MustCompile(`(?m)^panic: |(?i:internal compiler error)`)
)

// HasErrorDiagnostic reports whether output contains at least one
// error-level diagnostic in this flavor's format.
func (f Flavor) HasErrorDiagnostic(output string) bool {
	switch f {
	case Rustc:
		return rustcError.MatchString(output)
	case CC:
		return ccError.MatchString(output)
	case Go:
		return goError.MatchString(output)
	}

	return false
}

// IsInternalError reports whether output shows the compiler itself failing.
func (f Flavor) IsInternalError(output string) bool {
	switch f {
	case Rustc:
		return rustcICE.MatchString(output)
	case CC:
		return ccICE.MatchString(output)
	case Go:
		return goICE.MatchString(output)
	}

	return false
}
