package compiler

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/Norgate-AV/featprobe/internal/probe"
	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

// Command is a fully resolved trial compilation.
type Command struct {
	Path string
	Args []string
	// Env holds overrides appended to the inherited environment.
	Env []string
	// Dir is the scratch directory the compiler runs in.
	Dir string
	// Source is the snippet file inside Dir.
	Source string
}

// BuildCommand assembles the compiler invocation for p inside scratch.
// debug asks the compiler for extra crash detail where the flavor has a knob for it.
func BuildCommand(fp *toolchain.Fingerprint, p *probe.Probe, scratch string, debug bool) *Command {
	source := filepath.Join(scratch, "probe"+fp.Flavor.SourceExt())

	extra := p.Args()
	if debug {
		extra = slices.Concat(fp.Flavor.DebugArgs(), extra)
	}

	return &Command{
		Path:   fp.Compiler,
		Args:   fp.CompileArgs(scratch, source, extra),
		Env:    fp.CompileEnv(debug),
		Dir:    scratch,
		Source: source,
	}
}

// String renders the command line for logs and error messages.
func (c *Command) String() string {
	parts := make([]string, 0, len(c.Env)+len(c.Args)+1)
	parts = append(parts, c.Env...)
	parts = append(parts, c.Path)
	parts = append(parts, c.Args...)

	return strings.Join(parts, " ")
}
