// Package audiofile extracts the per-file info the match engine starts
// from: title, artists, ISRC, track number, and prior tagging status, read
// from a file's tag container and, where the container is silent,
// backfilled from its filename via a user-supplied template.
package audiofile

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/tag"
	"github.com/onetagger/autotagger-core/internal/utils"
)

// LoadFile opens path's tag container read-only and extracts Title,
// Artists, ISRC, TrackNumber, and Tagged status. filenameTemplate, if
// non-empty, backfills Title/Artists from the filename when the container
// doesn't carry them. Duration is left unset; call LoadDuration separately
// when match_duration requires it.
func LoadFile(path, filenameTemplate string) (*model.AudioFileInfo, error) {
	format, ok := model.FormatFromExtension(filepath.Ext(path))
	if !ok {
		return nil, fmt.Errorf("audiofile: unsupported extension: %s", path)
	}

	container, err := tag.LoadFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("audiofile: %w", err)
	}

	info := &model.AudioFileInfo{
		Path:   path,
		Format: format,
		Tags:   container.AllTags(),
	}

	if values, found := container.GetField(model.FieldTitle); found && len(values) > 0 && values[0] != "" {
		title := values[0]
		info.Title = &title
	}

	if values, found := container.GetField(model.FieldArtist); found && len(values) > 0 && values[0] != "" {
		info.Artists = splitArtists(values[0])
	}

	if filenameTemplate != "" && (info.Title == nil || len(info.Artists) == 0) {
		backfillFromFilename(info, path, filenameTemplate)
	}

	if values, found := container.GetField(model.FieldISRC); found && len(values) > 0 && values[0] != "" {
		isrc := values[0]
		info.ISRC = &isrc
	}

	if values, found := container.GetField(model.FieldTrackNumber); found && len(values) > 0 {
		if n, convErr := strconv.Atoi(values[0]); convErr == nil {
			info.TrackNumber = &n
		}
	}

	info.Tagged = taggedStatus(container)

	return info, nil
}

// LoadDuration lazily fills info.Duration from the container's duration
// field (model.FieldDuration, stored in milliseconds per ID3's TLEN
// convention that the rest of the field table follows). Only called when
// duration matching is enabled, since opening the container a second time
// is wasted work otherwise.
func LoadDuration(info *model.AudioFileInfo) error {
	if info.Duration != nil {
		return nil
	}

	container, err := tag.LoadFile(info.Path, false)
	if err != nil {
		return fmt.Errorf("audiofile: %w", err)
	}

	zero := time.Duration(0)

	values, found := container.GetField(model.FieldDuration)
	if !found || len(values) == 0 {
		info.Duration = &zero
		return nil
	}

	ms, err := strconv.Atoi(values[0])
	if err != nil || ms < 0 {
		info.Duration = &zero
		return nil
	}

	d := time.Duration(ms) * time.Millisecond
	info.Duration = &d

	return nil
}

// splitArtists splits a single artist-field string on ";", then ",", then
// "/", in that priority order; the first separator present wins and the
// others are left untouched inside each resulting piece.
func splitArtists(raw string) []string {
	sep := ""

	switch {
	case strings.Contains(raw, ";"):
		sep = ";"
	case strings.Contains(raw, ","):
		sep = ","
	case strings.Contains(raw, "/"):
		sep = "/"
	default:
		return []string{strings.TrimSpace(raw)}
	}

	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

func taggedStatus(container tag.Container) model.FileTaggedStatus {
	name := model.TaggedDateFrame.ByFormat(container.Format())

	values, found := container.GetRaw(name)
	if !found || len(values) == 0 {
		return model.FileTaggedStatusUntagged
	}

	switch {
	case strings.HasSuffix(values[0], "_AT"):
		return model.FileTaggedStatusAutoTagger
	case strings.HasSuffix(values[0], "_AF"):
		return model.FileTaggedStatusAudioFeatures
	default:
		return model.FileTaggedStatusTagged
	}
}

var templateTokenPattern = regexp.MustCompile(`%([a-zA-Z]+)%`) //nolint:gochecknoglobals // immutable compiled pattern.

// BuildFilenameRegex compiles a user-supplied filename template into a
// regexp with named capture groups: every regex metacharacter in the
// template's literal parts is escaped; %title%, %artist%, and %artists%
// become named captures; any other %word% becomes a non-capturing
// wildcard; the extension is anchored at the end.
func BuildFilenameRegex(template string) (*regexp.Regexp, error) {
	var b strings.Builder

	last := 0

	for _, loc := range templateTokenPattern.FindAllStringSubmatchIndex(template, -1) {
		b.WriteString(regexp.QuoteMeta(template[last:loc[0]]))

		switch token := template[loc[2]:loc[3]]; token {
		case "title":
			b.WriteString(`(?P<title>.+?)`)
		case "artist", "artists":
			b.WriteString(`(?P<artists>.+?)`)
		default:
			b.WriteString(`.*?`)
		}

		last = loc[1]
	}

	b.WriteString(regexp.QuoteMeta(template[last:]))
	b.WriteString(`\.[a-zA-Z0-9]{2,4}$`)

	return regexp.Compile(b.String())
}

func backfillFromFilename(info *model.AudioFileInfo, path, template string) {
	re, err := BuildFilenameRegex(template)
	if err != nil {
		return
	}

	name := filepath.Base(path)

	if info.Title == nil {
		if title := utils.ExtractNamedGroup(re, "title", name); title != "" {
			info.Title = &title
		}
	}

	if len(info.Artists) == 0 {
		if artists := utils.ExtractNamedGroup(re, "artists", name); artists != "" {
			info.Artists = splitArtists(artists)
		}
	}
}
