// Package registry loads probe definitions into a read-only, name-addressable
// set. A registry is either complete and valid or not produced at all.
package registry

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Norgate-AV/featprobe/internal/probe"
	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

//go:embed defaults/*.yaml
var defaultsFS embed.FS

// DefaultsSource names the embedded probe set in errors and listings.
const DefaultsSource = "defaults"

// File is the on-disk layout of a probe definition file.
type File struct {
	Probes []probe.Definition `yaml:"probes" toml:"probes"`
}

// Registry is an ordered, immutable set of probes.
type Registry struct {
	flavor toolchain.Flavor
	probes []*probe.Probe
	source map[string]string
	byName map[string]*probe.Probe
}

// Load reads and validates every definition file. Entries keep file order,
// files keep argument order. A name defined twice anywhere is an error.
func Load(flavor toolchain.Flavor, paths ...string) (*Registry, error) {
	if len(paths) == 0 {
		return nil, &Error{Source: "(none)", Index: -1, Err: errors.New("no probe files given")}
	}

	b := newBuilder(flavor)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Source: path, Index: -1, Err: err}
		}

		defs, err := Parse(data, formatOf(path))
		if err != nil {
			return nil, &Error{Source: path, Index: -1, Err: err}
		}

		if err := b.add(path, defs); err != nil {
			return nil, err
		}
	}

	return b.build()
}

// Default returns the embedded probe set for flavor.
func Default(flavor toolchain.Flavor) (*Registry, error) {
	data, err := defaultsFS.ReadFile("defaults/" + flavor.String() + ".yaml")
	if err != nil {
		return nil, &Error{Source: DefaultsSource, Index: -1, Err: fmt.Errorf("no default probes for %s", flavor)}
	}

	defs, err := Parse(data, "yaml")
	if err != nil {
		return nil, &Error{Source: DefaultsSource, Index: -1, Err: err}
	}

	return FromDefinitions(flavor, DefaultsSource, defs)
}

// FromDefinitions builds a registry from already-decoded definitions.
func FromDefinitions(flavor toolchain.Flavor, source string, defs []probe.Definition) (*Registry, error) {
	b := newBuilder(flavor)
	if err := b.add(source, defs); err != nil {
		return nil, err
	}

	return b.build()
}

// Parse decodes a definition file. Unknown fields are rejected so that a
// misspelt key cannot silently change a probe's meaning.
func Parse(data []byte, format string) ([]probe.Definition, error) {
	var f File

	switch format {
	case "toml":
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown field %q", undecoded[0].String())
		}
	case "yaml", "json":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode %s: %w", format, err)
		}
	default:
		return nil, fmt.Errorf("unsupported probe file format %q", format)
	}

	return f.Probes, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	case ".yml", ".yaml":
		return "yaml"
	}

	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

type builder struct {
	reg     *Registry
	sources []string
}

func newBuilder(flavor toolchain.Flavor) *builder {
	return &builder{reg: &Registry{
		flavor: flavor,
		source: make(map[string]string),
		byName: make(map[string]*probe.Probe),
	}}
}

func (b *builder) add(source string, defs []probe.Definition) error {
	b.sources = append(b.sources, source)

	for i, def := range defs {
		if prev, dup := b.reg.source[def.Name]; dup {
			return &Error{Source: source, Index: i, Entry: def.Name, Err: fmt.Errorf("duplicate name, first defined in %s", prev)}
		}

		p, err := probe.New(def, b.reg.flavor)
		if err != nil {
			return &Error{Source: source, Index: i, Entry: def.Name, Err: err}
		}

		b.reg.probes = append(b.reg.probes, p)
		b.reg.byName[p.Name()] = p
		b.reg.source[p.Name()] = source
	}

	return nil
}

func (b *builder) build() (*Registry, error) {
	if len(b.reg.probes) == 0 {
		return nil, &Error{Source: strings.Join(b.sources, ", "), Index: -1, Err: errors.New("no probes defined")}
	}

	return b.reg, nil
}

// Flavor is the compiler family the probes were expanded for.
func (r *Registry) Flavor() toolchain.Flavor { return r.flavor }

// Len returns the number of probes.
func (r *Registry) Len() int { return len(r.probes) }

// Probes returns the probes in definition order.
func (r *Registry) Probes() []*probe.Probe {
	return slices.Clone(r.probes)
}

// Lookup finds a probe by name.
func (r *Registry) Lookup(name string) (*probe.Probe, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Source returns the file a probe was defined in.
func (r *Registry) Source(name string) string {
	return r.source[name]
}

// Names returns probe names in definition order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.probes))
	for i, p := range r.probes {
		names[i] = p.Name()
	}

	return names
}
