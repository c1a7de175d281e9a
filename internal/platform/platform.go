// Package platform defines the Platform Adapter Contract: the
// Source/SourceBuilder interfaces every catalog adapter implements, the
// PlatformInfo declaration an adapter publishes about itself, and the
// Registry the Auto-Tagger Scheduler uses to look adapters up by id.
package platform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/onetagger/autotagger-core/internal/model"
)

// Source is one constructed instance of a platform adapter. The scheduler
// builds up to T of these per platform and hands each to its own worker; a
// Source is never shared across workers, so implementations don't need to
// be goroutine-safe beyond whatever shared state (token cache, release
// cache) they choose to embed.
type Source interface {
	// MatchTrack searches the platform's catalog for candidates matching
	// info and returns them scored and tagged with a MatchReason. An
	// adapter that supports a platform-ID fast path (config.MatchByID)
	// should prefer it and return a single NewIDMatch/NewISRCMatch result.
	MatchTrack(ctx context.Context, info *model.AudioFileInfo, config *model.Configuration) ([]model.TrackMatch, error)

	// ExtendTrack fills in any tag field enabled in config that isn't
	// already present on track, typically via a follow-up lookup. Adapters
	// that never need a second round-trip may implement this as a no-op.
	ExtendTrack(ctx context.Context, track *model.Track, config *model.Configuration) error
}

// SourceBuilder constructs Source instances and publishes the adapter's
// static PlatformInfo.
type SourceBuilder interface {
	// Info declares the adapter's identity, capabilities, and
	// configuration schema; it is called even before any Source is built,
	// so it must not require authentication or network access.
	Info() PlatformInfo

	// GetSource constructs one Source bound to config. A source that
	// fails to construct (bad credentials, unreachable auth endpoint) is
	// dropped by the scheduler with a logged warning; if every attempt
	// fails the platform is skipped with a logged error.
	GetSource(config *model.Configuration) (Source, error)
}

// OptionType is the typed shape of one platform custom-option field.
type OptionType uint8

const (
	// OptionBoolean is a checkbox-style flag.
	OptionBoolean OptionType = iota
	// OptionNumber is a bounded numeric field (Min/Max/Step apply).
	OptionNumber
	// OptionString is free text.
	OptionString
	// OptionTag is a FrameName-triple picker, used for fields like
	// StylesCustomTag.
	OptionTag
	// OptionOption is a closed choice among Values.
	OptionOption
)

// OptionSchema describes one entry in an adapter's custom-option bag.
type OptionSchema struct {
	Key     string
	Label   string
	Type    OptionType
	Min     float64
	Max     float64
	Step    float64
	Values  []string
	Default any
}

// PlatformInfo is the static declaration an adapter makes about itself:
// identity, capability set, concurrency cap, and custom-option schema.
type PlatformInfo struct {
	ID            string
	DisplayName   string
	Description   string
	Version       string
	Icon          []byte
	MaxThreads    int
	SupportedTags []model.Field
	CustomOptions []OptionSchema
	RequiresAuth  bool
}

// SupportsTag reports whether field is in the adapter's closed
// supported_tags set.
func (p PlatformInfo) SupportsTag(field model.Field) bool {
	for _, f := range p.SupportedTags {
		if f == field {
			return true
		}
	}

	return false
}

// EffectiveThreads computes the per-platform worker count:
// min(requested, max_threads) with max_threads 0 meaning unlimited, and a
// floor of one worker.
func (p PlatformInfo) EffectiveThreads(requested int) int {
	if requested < 1 {
		requested = 1
	}

	if p.MaxThreads > 0 && p.MaxThreads < requested {
		return p.MaxThreads
	}

	return requested
}

// ErrUnknownPlatform is returned by Get for an id no adapter registered.
var ErrUnknownPlatform = errors.New("platform: unknown platform id")

// registry is the process-wide Platform Registry the scheduler resolves
// config.Platforms entries against.
var (
	registryMu sync.RWMutex                        //nolint:gochecknoglobals // guards the process-wide registry.
	registry   = map[string]func() SourceBuilder{} //nolint:gochecknoglobals // process-wide adapter registry.
)

// Register adds an adapter factory under id, the database/sql-style
// self-registration every built-in adapter performs from its init().
// Registering the same id twice replaces the earlier factory; last one
// wins.
func Register(id string, factory func() SourceBuilder) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[id] = factory
}

// Get resolves id to a freshly-built SourceBuilder.
func Get(id string) (SourceBuilder, error) {
	registryMu.RLock()
	factory, ok := registry[id]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, id)
	}

	return factory(), nil
}

// IDs returns the sorted ids of every registered adapter.
func IDs() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
