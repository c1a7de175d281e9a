package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func durationPtr(d time.Duration) *time.Duration {
	return &d
}

// TestLyricsSynced tests the synced-iff-first-line-has-start invariant.
func TestLyricsSynced(t *testing.T) {
	t.Parallel()

	synced := &Lyrics{Lines: []LyricsLine{
		{Text: "first", Start: durationPtr(1500 * time.Millisecond)}, //nolint:exhaustruct // test fixture.
		{Text: "second"},                                             //nolint:exhaustruct // test fixture.
	}}
	unsynced := &Lyrics{Lines: []LyricsLine{
		{Text: "first"},                                               //nolint:exhaustruct // test fixture.
		{Text: "second", Start: durationPtr(2 * time.Second)},         //nolint:exhaustruct // test fixture.
	}}

	assert.True(t, synced.Synced())
	assert.False(t, unsynced.Synced(), "timing on a later line alone does not make lyrics synced")
	assert.False(t, (&Lyrics{Lines: nil}).Synced())
	assert.False(t, (*Lyrics)(nil).Synced())
}

// TestLyricsPlainText tests the newline-joined unsynced rendering.
func TestLyricsPlainText(t *testing.T) {
	t.Parallel()

	lyrics := &Lyrics{Lines: []LyricsLine{
		{Text: "one"}, //nolint:exhaustruct // test fixture.
		{Text: "two"}, //nolint:exhaustruct // test fixture.
	}}

	assert.Equal(t, "one\ntwo", lyrics.PlainText())
	assert.Empty(t, (*Lyrics)(nil).PlainText())
}

// TestGenerateLRC tests LRC rendering of synced lyrics.
func TestGenerateLRC(t *testing.T) {
	t.Parallel()

	lyrics := &Lyrics{Lines: []LyricsLine{
		{Text: "first line", Start: durationPtr(1500 * time.Millisecond)},          //nolint:exhaustruct // test fixture.
		{Text: "second line", Start: durationPtr(time.Minute + 23*time.Second)},    //nolint:exhaustruct // test fixture.
		{Text: "untimed line"},                                                     //nolint:exhaustruct // test fixture.
	}}

	assert.Equal(t, "[00:01.50]first line\n[01:23.00]second line\n", lyrics.GenerateLRC())
}

// TestGenerateLRCUnsynced tests that unsynced lyrics render as empty.
func TestGenerateLRCUnsynced(t *testing.T) {
	t.Parallel()

	lyrics := &Lyrics{Lines: []LyricsLine{{Text: "only text"}}} //nolint:exhaustruct // test fixture.

	assert.Empty(t, lyrics.GenerateLRC())
}
