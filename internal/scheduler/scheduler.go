// Package scheduler implements the Auto-Tagger Scheduler and its
// single-file tagging step: per-platform worker pools over a shared file
// queue, fallback of unmatched files across platforms in configured order,
// non-blocking progress emission, cooperative cancellation, and the
// per-run result playlists.
package scheduler

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/onetagger/autotagger-core/internal/audiofile"
	"github.com/onetagger/autotagger-core/internal/logger"
	"github.com/onetagger/autotagger-core/internal/match"
	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/platform"
	"github.com/onetagger/autotagger-core/internal/platform/discogs"
	"github.com/onetagger/autotagger-core/internal/playlist"
	"github.com/onetagger/autotagger-core/internal/utils"
	"github.com/onetagger/autotagger-core/internal/writer"
)

// Status is the terminal outcome of tagging one file on one platform.
type Status uint8

const (
	// StatusOk means a match was found and written.
	StatusOk Status = iota
	// StatusError means matching or writing failed; the file stays in the
	// residual set for the next platform.
	StatusError
	// StatusSkipped means the file was not attempted (already tagged,
	// unreadable, or missing the fields matching needs).
	StatusSkipped
)

// FileResult is one file's outcome within one platform attempt.
type FileResult struct {
	Status     Status
	Path       string
	Message    string
	Accuracy   float64
	UsedShazam bool
}

// Progress is one progress-stream event: the file result wrapped with
// enough positional context to reconstruct ordering and a completion
// fraction.
type Progress struct {
	Platform      string
	PlatformIndex int
	PlatformCount int
	Processed     int
	Total         int
	Result        FileResult
	Value         float64
}

// ShazamClient is the acoustic-fingerprinting collaborator used when tag
// extraction fails or is forced; fingerprinting itself lives outside this
// module, so the scheduler only needs this seam.
type ShazamClient interface {
	Recognize(ctx context.Context, path string) (*model.AudioFileInfo, error)
}

// Scheduler runs the multi-platform tagging pipeline. The zero value plus
// a Config is usable; LoadInfo/LoadDuration/WriteTrack default to the real
// audiofile/writer implementations and exist as overridable seams for
// tests.
type Scheduler struct {
	Config *model.Configuration

	// Stop is the shared cancellation flag, checked between files;
	// in-flight adapter calls complete naturally and their results are
	// discarded.
	Stop *atomic.Bool

	// Progress receives one event per file per platform attempt; sends
	// are non-blocking best-effort, so a slow or absent receiver never
	// stalls tagging.
	Progress chan Progress

	// RunsDir is where the success/failed playlists land; empty disables
	// playlist writing.
	RunsDir string

	// HTTPClient serves album-art downloads inside the track writer.
	HTTPClient writer.HTTPClient

	// Shazam, when set, backs the fingerprinting path.
	Shazam ShazamClient

	LoadInfo     func(path, filenameTemplate string) (*model.AudioFileInfo, error)
	LoadDuration func(info *model.AudioFileInfo) error
	WriteTrack   func(ctx context.Context, path string, track *model.Track, config *model.Configuration, client writer.HTTPClient) error
}

func (s *Scheduler) loadInfo(path, template string) (*model.AudioFileInfo, error) {
	if s.LoadInfo != nil {
		return s.LoadInfo(path, template)
	}

	return audiofile.LoadFile(path, template)
}

func (s *Scheduler) loadDuration(info *model.AudioFileInfo) error {
	if s.LoadDuration != nil {
		return s.LoadDuration(info)
	}

	return audiofile.LoadDuration(info)
}

func (s *Scheduler) writeTrack(ctx context.Context, path string, track *model.Track, config *model.Configuration, client writer.HTTPClient) error {
	if s.WriteTrack != nil {
		return s.WriteTrack(ctx, path, track, config, client)
	}

	return writer.Write(ctx, path, track, config, client)
}

func (s *Scheduler) stopped() bool {
	return s.Stop != nil && s.Stop.Load()
}

// filenameTemplate returns the backfill template only when parse_filename
// is enabled.
func (s *Scheduler) filenameTemplate() string {
	if !s.Config.ParseFilename {
		return ""
	}

	return s.Config.FilenameTemplate
}

// Run tags files across every configured platform in order, falling
// through unmatched files to the next platform, then writes the per-run
// playlists and fires the optional post command.
func (s *Scheduler) Run(ctx context.Context, files []string) error {
	residual := append([]string{}, files...)

	var succeeded []string

	platformCount := len(s.Config.Platforms)

	for platformIndex, platformID := range s.Config.Platforms {
		if len(residual) == 0 || s.stopped() {
			break
		}

		s.applyPerPlatformOverrides(platformID, len(residual))

		builder, err := platform.Get(platformID)
		if err != nil {
			logger.Errorf(ctx, "skipping unknown platform %q: %v", platformID, err)
			continue
		}

		results := s.runPlatform(ctx, builder, platformID, platformIndex, platformCount, residual)

		var stillUnmatched []string

		for _, result := range results {
			if result.Status == StatusOk {
				succeeded = append(succeeded, result.Path)
			} else {
				stillUnmatched = append(stillUnmatched, result.Path)
			}
		}

		residual = stillUnmatched
	}

	if err := s.writeRunPlaylists(ctx, succeeded, residual); err != nil {
		return err
	}

	return nil
}

// runPlatform builds the platform's worker pool and fans the files out
// across it. Every input file produces exactly one result.
func (s *Scheduler) runPlatform(
	ctx context.Context,
	builder platform.SourceBuilder,
	platformID string,
	platformIndex, platformCount int,
	files []string,
) []FileResult {
	info := builder.Info()
	threads := info.EffectiveThreads(s.Config.Threads)

	sources := make([]platform.Source, 0, threads)

	for range threads {
		source, err := builder.GetSource(s.Config)
		if err != nil {
			logger.Warnf(ctx, "platform %q: source construction failed: %v", platformID, err)
			continue
		}

		sources = append(sources, source)
	}

	if len(sources) == 0 {
		logger.Errorf(ctx, "platform %q: every source failed to construct; skipping platform", platformID)

		results := make([]FileResult, 0, len(files))
		for _, path := range files {
			results = append(results, FileResult{ //nolint:exhaustruct // accuracy/shazam zero.
				Status:  StatusError,
				Path:    path,
				Message: "platform unavailable",
			})
		}

		return results
	}

	queue := make(chan string, len(files))
	for _, path := range files {
		queue <- path
	}

	close(queue)

	resultCh := make(chan FileResult, len(files))

	var wg sync.WaitGroup

	for _, source := range sources {
		wg.Add(1)

		go func(src platform.Source) {
			defer wg.Done()

			for path := range queue {
				if s.stopped() {
					resultCh <- FileResult{Status: StatusSkipped, Path: path, Message: "cancelled"} //nolint:exhaustruct
					continue
				}

				resultCh <- s.tagFileSafe(ctx, src, path)
			}
		}(source)
	}

	wg.Wait()
	close(resultCh)

	results := make([]FileResult, 0, len(files))
	processed := 0

	for result := range resultCh {
		processed++

		s.emitProgress(Progress{
			Platform:      platformID,
			PlatformIndex: platformIndex,
			PlatformCount: platformCount,
			Processed:     processed,
			Total:         len(files),
			Result:        result,
			Value:         progressValue(platformIndex, platformCount, processed, len(files)),
		})

		results = append(results, result)
	}

	return results
}

func progressValue(platformIndex, platformCount, processed, total int) float64 {
	if platformCount == 0 || total == 0 {
		return 0
	}

	return float64(platformIndex)/float64(platformCount) +
		(float64(processed)/float64(total))/float64(platformCount)
}

// emitProgress is non-blocking: when no receiver keeps up, events drop.
func (s *Scheduler) emitProgress(event Progress) {
	if s.Progress == nil {
		return
	}

	select {
	case s.Progress <- event:
	default:
	}
}

// tagFileSafe converts worker panics into file-level errors so a
// misbehaving adapter can never take the run down.
func (s *Scheduler) tagFileSafe(ctx context.Context, src platform.Source, path string) (result FileResult) {
	defer func() {
		if r := recover(); r != nil {
			result = FileResult{ //nolint:exhaustruct // accuracy/shazam zero.
				Status:  StatusError,
				Path:    path,
				Message: fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	return s.tagFile(ctx, src, path)
}

// tagFile runs the single-file sequence: load info (with the optional
// fingerprinting fallback), skip-tagged check, lazy duration load, match,
// sort, extend, write.
func (s *Scheduler) tagFile(ctx context.Context, src platform.Source, path string) FileResult {
	info, usedShazam, err := s.loadFileInfo(ctx, path)
	if err != nil {
		return FileResult{Status: StatusSkipped, Path: path, Message: err.Error()} //nolint:exhaustruct
	}

	if s.Config.SkipTagged && info.Tagged.AT() {
		return FileResult{Status: StatusSkipped, Path: path, Message: "already tagged", UsedShazam: usedShazam} //nolint:exhaustruct
	}

	if s.Config.MatchDuration {
		if err := s.loadDuration(info); err != nil {
			logger.Warnf(ctx, "loading duration of %s: %v", path, err)
		}
	}

	matches, err := src.MatchTrack(ctx, info, s.Config)
	if err != nil {
		return FileResult{Status: StatusError, Path: path, Message: err.Error(), UsedShazam: usedShazam} //nolint:exhaustruct
	}

	if len(matches) == 0 {
		return FileResult{Status: StatusError, Path: path, Message: "no match", UsedShazam: usedShazam} //nolint:exhaustruct
	}

	match.SortTracks(matches, sortOrderFor(s.Config.MultipleMatches))
	best := matches[0]

	if err := src.ExtendTrack(ctx, best.Track, s.Config); err != nil {
		logger.Warnf(ctx, "extending match for %s: %v", path, err)
	}

	if s.stopped() {
		return FileResult{Status: StatusSkipped, Path: path, Message: "cancelled", UsedShazam: usedShazam} //nolint:exhaustruct
	}

	if err := s.writeTrack(ctx, path, best.Track, s.Config, s.HTTPClient); err != nil {
		return FileResult{Status: StatusError, Path: path, Message: err.Error(), UsedShazam: usedShazam} //nolint:exhaustruct
	}

	return FileResult{ //nolint:exhaustruct // message empty on success.
		Status:     StatusOk,
		Path:       path,
		Accuracy:   best.Accuracy,
		UsedShazam: usedShazam,
	}
}

func (s *Scheduler) loadFileInfo(ctx context.Context, path string) (*model.AudioFileInfo, bool, error) {
	if s.Config.EnableShazam && s.Config.ForceShazam && s.Shazam != nil {
		info, err := s.Shazam.Recognize(ctx, path)
		if err == nil {
			return info, true, nil
		}

		logger.Warnf(ctx, "fingerprinting %s failed: %v", path, err)
	}

	info, err := s.loadInfo(path, s.filenameTemplate())
	if err == nil {
		return info, false, nil
	}

	if s.Config.EnableShazam && s.Shazam != nil {
		info, shazamErr := s.Shazam.Recognize(ctx, path)
		if shazamErr == nil {
			return info, true, nil
		}
	}

	return nil, false, err
}

func sortOrderFor(policy model.MultipleMatchesPolicy) match.SortOrder {
	switch policy {
	case model.MultipleMatchesOldest:
		return match.SortOldest
	case model.MultipleMatchesNewest:
		return match.SortNewest
	case model.MultipleMatchesDefault:
		fallthrough
	default:
		return match.SortAccuracy
	}
}

// applyPerPlatformOverrides adjusts a platform's custom options from the
// residual file count before its sources are built. Discogs is the only
// built-in instance: small residual batches get a "_rate_limit" budget
// injection.
func (s *Scheduler) applyPerPlatformOverrides(platformID string, residualFiles int) {
	if platformID != discogs.PlatformID {
		return
	}

	rateLimit := discogs.RateLimitFor(residualFiles)
	if rateLimit == 0 {
		return
	}

	if s.Config.Custom == nil {
		s.Config.Custom = map[string]model.PlatformCustomOptions{}
	}

	if s.Config.Custom[discogs.PlatformID] == nil {
		s.Config.Custom[discogs.PlatformID] = model.PlatformCustomOptions{}
	}

	s.Config.Custom[discogs.PlatformID]["_rate_limit"] = rateLimit
}

// writeRunPlaylists records the run outcome as success/failed M3U files in
// RunsDir, then fires the optional post command with the playlist paths
// substituted in.
func (s *Scheduler) writeRunPlaylists(ctx context.Context, succeeded, failed []string) error {
	if s.RunsDir == "" {
		return nil
	}

	stamp := fmt.Sprintf("%s-%s", time.Now().Format("20060102-150405"), uuid.NewString()[:8])

	successPath := filepath.Join(s.RunsDir, "success-"+stamp+".m3u")
	failedPath := filepath.Join(s.RunsDir, "failed-"+stamp+".m3u")

	if err := playlist.Write(successPath, canonicalize(succeeded)); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	if err := playlist.Write(failedPath, canonicalize(failed)); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	s.runPostCommand(ctx, successPath, failedPath)

	return nil
}

func canonicalize(paths []string) []string {
	return utils.Map(paths, func(path string) string {
		abs, err := filepath.Abs(path)
		if err != nil {
			return path
		}

		return abs
	})
}

// runPostCommand substitutes $success/$failed and shells the command out
// asynchronously; the run does not wait for it.
func (s *Scheduler) runPostCommand(ctx context.Context, successPath, failedPath string) {
	command := strings.TrimSpace(s.Config.PostCommand)
	if command == "" {
		return
	}

	command = strings.ReplaceAll(command, "$success", successPath)
	command = strings.ReplaceAll(command, "$failed", failedPath)

	cmd := exec.CommandContext(ctx, "sh", "-c", command) //nolint:gosec // the post command is operator-configured by design.
	if err := cmd.Start(); err != nil {
		logger.Warnf(ctx, "post command failed to start: %v", err)
		return
	}

	go func() {
		_ = cmd.Wait()
	}()
}
