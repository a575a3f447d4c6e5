// Package probe defines the unit of work of a probing run and its verdict.
//
// A Probe is a named, self-contained snippet plus the policy used to read the
// compiler's response. Probes are built once from a Definition and never
// change afterwards; their content hash covers everything that can influence
// the verdict, so a cached Result is only reused for identical content.
//
// A Result is one of Supported, Unsupported or Indeterminate. Indeterminate
// is the zero Status and is never reported as supported.
package probe
