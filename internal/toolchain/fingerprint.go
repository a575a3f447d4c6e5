package toolchain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint identifies one compiler configured one way. Two runs with
// equal fingerprints must produce equal results for equal probes.
type Fingerprint struct {
	Flavor Flavor
	// Compiler is the resolved absolute path of the binary.
	Compiler string
	// Version is the version line reported by the compiler.
	Version string
	// Host is the compiler's default target as it reported it.
	Host string
	// Target is the explicitly requested target, empty for the host.
	Target string
	// Env holds sorted KEY=value pairs; unset keys appear as bare KEY.
	Env []string
	// Emit is the output kind trial compilations produce; empty for
	// flavors without one.
	Emit string

	Hash string
}

// EffectiveTarget is the target code is generated for.
func (fp *Fingerprint) EffectiveTarget() string {
	if fp.Target != "" {
		return fp.Target
	}

	return fp.Host
}

// CompileArgs builds the trial-compilation arguments for this fingerprint.
func (fp *Fingerprint) CompileArgs(scratch, source string, extra []string) []string {
	return fp.Flavor.CompileArgs(fp.Target, fp.Emit, scratch, source, extra)
}

// CompileEnv returns the environment overrides for trial compilations.
func (fp *Fingerprint) CompileEnv(debug bool) []string {
	return fp.Flavor.CompileEnv(fp.Target, debug)
}

func (fp *Fingerprint) computeHash() string {
	h := sha256.New()

	fields := []string{
		fp.Flavor.String(),
		fp.Compiler,
		fp.Version,
		fp.Host,
		fp.Target,
		strings.Join(fp.Env, "\n"),
		fp.Emit,
	}

	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}
