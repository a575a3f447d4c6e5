package toolchain

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DefaultQueryTimeout bounds the version query made during resolution.
const DefaultQueryTimeout = 10 * time.Second

// Resolver computes the Fingerprint of the compiler under test.
type Resolver struct {
	Flavor Flavor
	// Compiler is a binary name or path. Empty means the flavor's
	// environment variable, then its default binary.
	Compiler string
	// Target is an explicit target; empty probes the host.
	Target string
	// EnvKeys are fingerprinted in addition to Flavor.EnvKeys().
	EnvKeys []string
	// Emit selects the output kind for flavors that have one; empty
	// means Flavor.DefaultEmit.
	Emit string
	Timeout time.Duration

	lookPath  func(file string) (string, error)
	output    func(ctx context.Context, name string, args ...string) ([]byte, error)
	lookupEnv func(key string) (string, bool)
}

// NewResolver creates a resolver for the given flavor and compiler.
func NewResolver(flavor Flavor, compiler, target string, envKeys []string) *Resolver {
	return &Resolver{
		Flavor:    flavor,
		Compiler:  compiler,
		Target:    target,
		EnvKeys:   envKeys,
		Timeout:   DefaultQueryTimeout,
		lookPath:  exec.LookPath,
		output:    commandOutput,
		lookupEnv: os.LookupEnv,
	}
}

func commandOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}

		return out, err
	}

	return out, nil
}

// CompilerName returns the compiler the resolver will look up.
func (r *Resolver) CompilerName() string {
	if r.Compiler != "" {
		return r.Compiler
	}

	if key := r.Flavor.CompilerEnv(); key != "" {
		if v, ok := r.lookupEnv(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}

	return r.Flavor.DefaultCompiler()
}

// Resolve locates the compiler, queries its version and host target and
// hashes them with the relevant environment. Any failure is an
// *UnavailableError.
func (r *Resolver) Resolve(ctx context.Context) (*Fingerprint, error) {
	name := r.CompilerName()

	path, err := r.lookPath(name)
	if err != nil {
		return nil, &UnavailableError{Compiler: name, Err: err}
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	version, host, err := r.query(ctx, path)
	if err != nil {
		return nil, err
	}

	fp := &Fingerprint{
		Flavor:   r.Flavor,
		Compiler: path,
		Version:  version,
		Host:     host,
		Target:   r.Target,
		Env:      r.environment(),
		Emit:     r.Flavor.EmitKind(r.Emit),
	}
	fp.Hash = fp.computeHash()

	return fp, nil
}

func (r *Resolver) query(ctx context.Context, path string) (version, host string, err error) {
	switch r.Flavor {
	case Rustc:
		out, err := r.run(ctx, path, "-vV")
		if err != nil {
			return "", "", err
		}

		version = firstLine(out)
		host = fieldValue(out, "host:")
	case CC:
		out, err := r.run(ctx, path, "--version")
		if err != nil {
			return "", "", err
		}

		version = firstLine(out)

		// Not every cc understands -dumpmachine; the version line still
		// identifies the toolchain without it.
		if machine, err := r.run(ctx, path, "-dumpmachine"); err == nil {
			host = firstLine(machine)
		}
	case Go:
		out, err := r.run(ctx, path, "version")
		if err != nil {
			return "", "", err
		}

		version = firstLine(out)
		if fields := strings.Fields(version); len(fields) > 0 && strings.Contains(fields[len(fields)-1], "/") {
			host = fields[len(fields)-1]
		}
	default:
		return "", "", &UnavailableError{Compiler: path, Err: fmt.Errorf("unsupported flavor %s", r.Flavor)}
	}

	if version == "" {
		return "", "", &UnavailableError{
			Compiler: path,
			Command:  path,
			Err:      errors.New("compiler reported no version"),
		}
	}

	return version, host, nil
}

func (r *Resolver) run(ctx context.Context, path string, args ...string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := r.output(ctx, path, args...)
	if err != nil {
		return "", &UnavailableError{
			Compiler: path,
			Command:  strings.Join(append([]string{path}, args...), " "),
			Err:      err,
		}
	}

	return string(out), nil
}

func (r *Resolver) environment() []string {
	keys := append(slices.Clone(r.Flavor.EnvKeys()), r.EnvKeys...)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	env := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}

		if v, ok := r.lookupEnv(key); ok {
			env = append(env, key+"="+v)
		} else {
			env = append(env, key)
		}
	}

	return env
}

func firstLine(s string) string {
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}

	return ""
}

func fieldValue(s, prefix string) string {
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := strings.CutPrefix(line, prefix); ok {
			return strings.TrimSpace(v)
		}
	}

	return ""
}
