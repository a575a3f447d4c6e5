package probe

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

// Policy says how a compile outcome is read.
type Policy int

const (
	// PolicySuccess: supported iff the snippet compiles cleanly.
	PolicySuccess Policy = iota
	// PolicyDiagnostic: supported iff the compiler rejects the snippet with
	// a diagnostic matching the probe's expect pattern.
	PolicyDiagnostic
)

var policyNames = map[Policy]string{
	PolicySuccess:    "success",
	PolicyDiagnostic: "diagnostic",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}

	return fmt.Sprintf("Policy(%d)", p)
}

// ParsePolicy maps a definition value to a Policy. Empty means success.
func ParsePolicy(s string) (Policy, error) {
	if s == "" {
		return PolicySuccess, nil
	}

	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown policy %q (want success or diagnostic)", s)
}

// Definition is the declarative form of a probe, as read from a probe file.
type Definition struct {
	Name    string   `yaml:"name" toml:"name"`
	Kind    string   `yaml:"kind" toml:"kind"`
	Snippet string   `yaml:"snippet" toml:"snippet"`
	Type    string   `yaml:"type" toml:"type"`
	Args    []string `yaml:"args" toml:"args"`
	Policy  string   `yaml:"policy" toml:"policy"`
	Expect  string   `yaml:"expect" toml:"expect"`
	Reject  string   `yaml:"reject" toml:"reject"`
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// Probe is an immutable capability test.
type Probe struct {
	name   string
	kind   Kind
	source string
	args   []string
	policy Policy
	expect *regexp.Regexp
	reject *regexp.Regexp
	hash   string
}

// New validates def and expands it into a Probe for the given flavor.
func New(def Definition, flavor toolchain.Flavor) (*Probe, error) {
	if !namePattern.MatchString(def.Name) {
		return nil, fmt.Errorf("invalid name %q", def.Name)
	}

	if strings.TrimSpace(def.Snippet) == "" {
		return nil, errors.New("empty snippet")
	}

	kind, err := ParseKind(def.Kind)
	if err != nil {
		return nil, err
	}

	source, err := Expand(flavor, kind, def.Snippet, def.Type)
	if err != nil {
		return nil, err
	}

	policy, err := ParsePolicy(def.Policy)
	if err != nil {
		return nil, err
	}

	p := &Probe{
		name:   def.Name,
		kind:   kind,
		source: source,
		args:   slices.Clone(def.Args),
		policy: policy,
	}

	if def.Expect != "" {
		if p.expect, err = regexp.Compile(def.Expect); err != nil {
			return nil, fmt.Errorf("invalid expect pattern: %w", err)
		}
	}

	if def.Reject != "" {
		if p.reject, err = regexp.Compile(def.Reject); err != nil {
			return nil, fmt.Errorf("invalid reject pattern: %w", err)
		}
	}

	switch {
	case policy == PolicyDiagnostic && p.expect == nil:
		return nil, errors.New("diagnostic policy requires an expect pattern")
	case policy == PolicySuccess && (p.expect != nil || p.reject != nil):
		return nil, errors.New("expect and reject patterns only apply to the diagnostic policy")
	}

	p.hash = p.contentHash()
	return p, nil
}

func (p *Probe) Name() string   { return p.name }
func (p *Probe) Kind() Kind     { return p.kind }
func (p *Probe) Policy() Policy { return p.policy }

// Source is the complete program handed to the compiler.
func (p *Probe) Source() string { return p.source }

// Args returns a copy of the extra compiler arguments.
func (p *Probe) Args() []string { return slices.Clone(p.args) }

// Expect is the pattern identifying the anticipated rejection, or nil.
func (p *Probe) Expect() *regexp.Regexp { return p.expect }

// Reject is the pattern identifying an unrecognized feature, or nil.
func (p *Probe) Reject() *regexp.Regexp { return p.reject }

// ContentHash covers everything that can change the probe's verdict.
// The name is not part of it.
func (p *Probe) ContentHash() string { return p.hash }

func (p *Probe) contentHash() string {
	h := sha256.New()

	fields := []string{p.kind.String(), p.source, strings.Join(p.args, "\x1f"), p.policy.String()}
	if p.expect != nil {
		fields = append(fields, p.expect.String())
	} else {
		fields = append(fields, "")
	}

	if p.reject != nil {
		fields = append(fields, p.reject.String())
	} else {
		fields = append(fields, "")
	}

	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}
