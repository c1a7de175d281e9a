package model

import (
	"fmt"
	"strings"
	"time"
)

// LyricsWordPart is a single word or syllable within a synced lyrics line,
// optionally carrying its own sub-line timing.
type LyricsWordPart struct {
	Text  string
	Start *time.Duration
	End   *time.Duration
}

// LyricsLine is one paragraph line of lyrics with optional line-level
// timing and optional word-level parts.
type LyricsLine struct {
	Text  string
	Start *time.Duration
	End   *time.Duration
	Parts []LyricsWordPart
}

// Lyrics holds the full lyric text for a track as an ordered list of lines.
type Lyrics struct {
	Lines []LyricsLine
}

// Synced reports whether the lyrics are time-synchronized: true iff the
// first line carries a start timestamp.
func (l *Lyrics) Synced() bool {
	if l == nil || len(l.Lines) == 0 {
		return false
	}

	return l.Lines[0].Start != nil
}

// PlainText joins all lines with newlines, discarding timing — the form
// consumed by unsynced lyrics frames (USLT/LYRICS/©lyr).
func (l *Lyrics) PlainText() string {
	if l == nil {
		return ""
	}

	lines := make([]string, len(l.Lines))
	for i, line := range l.Lines {
		lines[i] = line.Text
	}

	return strings.Join(lines, "\n")
}

// GenerateLRC renders synced lyrics into LRC-formatted text, one
// "[mm:ss.xx]text" line per entry, grounded on the reference
// implementation's LyricsExt::generate_lrc. Returns an empty string for
// unsynced lyrics.
func (l *Lyrics) GenerateLRC() string {
	if !l.Synced() {
		return ""
	}

	var b strings.Builder

	for _, line := range l.Lines {
		if line.Start == nil {
			continue
		}

		d := *line.Start
		minutes := int(d / time.Minute)
		seconds := d - time.Duration(minutes)*time.Minute
		hundredths := int(seconds.Milliseconds()/10) % 100 //nolint:mnd // LRC timestamps use centisecond precision.

		fmt.Fprintf(&b, "[%02d:%02d.%02d]%s\n", minutes, int(seconds.Seconds()), hundredths, line.Text)
	}

	return b.String()
}
