// Package model defines the canonical data types shared across the
// auto-tagging core: the logical Track returned by a catalog adapter, the
// per-file AudioFileInfo extracted before matching, the cleaning-cascade
// inputs, and the frame-name projection used by the tag containers.
package model
