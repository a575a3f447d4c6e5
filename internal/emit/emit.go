// Package emit renders a probe report as feature flags for a build system.
package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/Norgate-AV/featprobe/internal/cache"
	"github.com/Norgate-AV/featprobe/internal/engine"
	"github.com/Norgate-AV/featprobe/internal/probe"
	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

// EnvPrefix prefixes every variable written in the env format.
const EnvPrefix = "FEATPROBE_"

// Format selects an output encoding.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatEnv   Format = "env"
	FormatCargo Format = "cargo"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatEnv, FormatCargo}
}

// ParseFormat validates s as a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Formats(), f) {
		return f, nil
	}

	return "", fmt.Errorf("unknown output format %q (want one of %s)", s, joinFormats())
}

func joinFormats() string {
	names := make([]string, 0, len(Formats()))
	for _, f := range Formats() {
		names = append(names, string(f))
	}

	return strings.Join(names, ", ")
}

// Feature is one emitted flag with the evidence behind it.
type Feature struct {
	Name     string
	Enabled  bool
	Status   probe.Status
	Reason   probe.Reason
	ExitCode int
	Elapsed  time.Duration
}

// Flags is the build-facing view of a report. Only Supported probes are
// enabled; Indeterminate is treated as absent.
type Flags struct {
	Fingerprint *toolchain.Fingerprint
	Features    []Feature
	Warnings    []engine.Warning
}

// FromReport converts a report into flags, keeping registry order.
func FromReport(r *engine.Report) *Flags {
	f := &Flags{
		Fingerprint: r.Fingerprint,
		Features:    make([]Feature, 0, len(r.Results)),
		Warnings:    slices.Clone(r.Warnings),
	}

	for _, res := range r.Results {
		f.Features = append(f.Features, Feature{
			Name:     res.Probe,
			Enabled:  res.Supported(),
			Status:   res.Status,
			Reason:   res.Reason,
			ExitCode: res.Evidence.ExitCode,
			Elapsed:  res.Evidence.Elapsed,
		})
	}

	return f
}

// Enabled reports whether the named feature is on.
func (f *Flags) Enabled(name string) bool {
	for _, feat := range f.Features {
		if feat.Name == name {
			return feat.Enabled
		}
	}

	return false
}

// Map returns the name to enabled mapping.
func (f *Flags) Map() map[string]bool {
	m := make(map[string]bool, len(f.Features))
	for _, feat := range f.Features {
		m[feat.Name] = feat.Enabled
	}

	return m
}

// Write renders f to w in the given format.
func Write(w io.Writer, f *Flags, format Format) error {
	switch format {
	case FormatText:
		return writeText(w, f)
	case FormatJSON:
		return writeJSON(w, f)
	case FormatEnv:
		return writeEnv(w, f)
	case FormatCargo:
		return writeCargo(w, f)
	}

	return fmt.Errorf("unknown output format %q", format)
}

var (
	yes  = color.New(color.FgGreen).SprintFunc()
	no   = color.New(color.FgRed).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
	dim  = color.New(color.Faint).SprintFunc()
)

func writeText(w io.Writer, f *Flags) error {
	var b strings.Builder

	if fp := f.Fingerprint; fp != nil {
		fmt.Fprintf(&b, "%s %s\n", dim("toolchain:"), fp.Version)
		fmt.Fprintf(&b, "%s %s\n", dim("target:   "), fp.EffectiveTarget())
		fmt.Fprintf(&b, "%s %s\n\n", dim("hash:     "), cache.ShortHash(fp.Hash))
	}

	width := 0
	for _, feat := range f.Features {
		width = max(width, len(feat.Name))
	}

	for _, feat := range f.Features {
		var verdict string
		switch {
		case feat.Enabled:
			verdict = yes("yes")
		case feat.Status == probe.StatusIndeterminate:
			verdict = warn("no") + dim(" (indeterminate: "+string(feat.Reason)+")")
		default:
			verdict = no("no") + dim(" ("+string(feat.Reason)+")")
		}

		fmt.Fprintf(&b, "%-*s  %s\n", width, feat.Name, verdict)
	}

	if len(f.Warnings) > 0 {
		b.WriteString("\n")
		for _, warning := range f.Warnings {
			fmt.Fprintf(&b, "%s %s\n", warn("warning:"), warning)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

type jsonFingerprint struct {
	Flavor   string `json:"flavor"`
	Compiler string `json:"compiler"`
	Version  string `json:"version"`
	Host     string `json:"host"`
	Target   string `json:"target,omitempty"`
	Hash     string `json:"hash"`
}

type jsonFeature struct {
	Supported bool         `json:"supported"`
	Status    probe.Status `json:"status"`
	Reason    probe.Reason `json:"reason"`
	ExitCode  int          `json:"exit_code"`
	ElapsedMS int64        `json:"elapsed_ms"`
}

type jsonReport struct {
	Fingerprint *jsonFingerprint       `json:"fingerprint,omitempty"`
	Features    map[string]jsonFeature `json:"features"`
	Warnings    []string               `json:"warnings"`
}

func writeJSON(w io.Writer, f *Flags) error {
	out := jsonReport{
		Features: make(map[string]jsonFeature, len(f.Features)),
		Warnings: make([]string, 0, len(f.Warnings)),
	}

	if fp := f.Fingerprint; fp != nil {
		out.Fingerprint = &jsonFingerprint{
			Flavor:   fp.Flavor.String(),
			Compiler: fp.Compiler,
			Version:  fp.Version,
			Host:     fp.Host,
			Target:   fp.Target,
			Hash:     fp.Hash,
		}
	}

	for _, feat := range f.Features {
		out.Features[feat.Name] = jsonFeature{
			Supported: feat.Enabled,
			Status:    feat.Status,
			Reason:    feat.Reason,
			ExitCode:  feat.ExitCode,
			ElapsedMS: feat.Elapsed.Milliseconds(),
		}
	}

	for _, warning := range f.Warnings {
		out.Warnings = append(out.Warnings, warning.String())
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// EnvName returns the variable name used for a feature in the env format.
func EnvName(feature string) string {
	return EnvPrefix + strings.ToUpper(identifier(feature))
}

// CfgName returns the cfg name used for a feature in the cargo format.
func CfgName(feature string) string {
	return identifier(feature)
}

// identifier maps every rune outside [A-Za-z0-9_] to an underscore.
func identifier(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}

		return '_'
	}, s)
}

func writeEnv(w io.Writer, f *Flags) error {
	var b strings.Builder

	for _, warning := range f.Warnings {
		fmt.Fprintf(&b, "# warning: %s\n", singleLine(warning.String()))
	}

	for _, feat := range f.Features {
		v := "0"
		if feat.Enabled {
			v = "1"
		}

		fmt.Fprintf(&b, "%s=%s\n", EnvName(feat.Name), v)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCargo(w io.Writer, f *Flags) error {
	var b strings.Builder

	for _, feat := range f.Features {
		fmt.Fprintf(&b, "cargo:rustc-check-cfg=cfg(%s)\n", CfgName(feat.Name))
	}

	for _, feat := range f.Features {
		if feat.Enabled {
			fmt.Fprintf(&b, "cargo:rustc-cfg=%s\n", CfgName(feat.Name))
		}
	}

	for _, warning := range f.Warnings {
		fmt.Fprintf(&b, "cargo:warning=%s\n", singleLine(warning.String()))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// singleLine keeps line-oriented formats parseable.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
