// Package register blank-imports every built-in Platform Adapter so its
// init() self-registers with internal/platform's Registry. Importing this
// package for its side effects is the one place the binary needs to know
// the adapters exist; everything else resolves them by id through the
// Registry.
package register

import (
	_ "github.com/onetagger/autotagger-core/internal/platform/beatport"
	_ "github.com/onetagger/autotagger-core/internal/platform/discogs"
	_ "github.com/onetagger/autotagger-core/internal/platform/musicbrainz"
	_ "github.com/onetagger/autotagger-core/internal/platform/spotify"
)
