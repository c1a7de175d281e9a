// Package match implements the heart of the match engine: the
// seven-step title cleaning cascade, artist/duration gating, the
// exact-then-fuzzy scoring cascade, and the multiple-matches sort policies.
// The cascade is modeled as an ordered table of pure functions so the
// exact-fallback loop can iterate it directly, grounded on the reference
// implementation's data-driven validation-rule-list pattern
// (track_validator.go's []*ValidationRule).
package match
