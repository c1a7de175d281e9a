package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/onetagger/autotagger-core/internal/config"
	"github.com/onetagger/autotagger-core/internal/features"
	"github.com/onetagger/autotagger-core/internal/logger"
	"github.com/onetagger/autotagger-core/internal/model"
	_ "github.com/onetagger/autotagger-core/internal/platform/register" //nolint:revive // blank-imports the built-in adapters so they self-register.
	"github.com/onetagger/autotagger-core/internal/platform/spotify"
	"github.com/onetagger/autotagger-core/internal/playlist"
	"github.com/onetagger/autotagger-core/internal/scheduler"
	http_transport "github.com/onetagger/autotagger-core/internal/transport/http"
	"github.com/onetagger/autotagger-core/internal/writer"
)

// Summary aggregates per-file outcomes across the tagging run and, when
// enabled, the audio-features pass.
type Summary struct {
	OK      int
	Error   int
	Skipped int

	FeaturesOK      int
	FeaturesError   int
	FeaturesSkipped int
}

// ResolveFiles expands the user's command-line paths into the audio file
// list to tag: directories are enumerated (honoring include_subfolders),
// M3U(8) playlists are parsed, and plain audio files pass through. With no
// paths given, the configured root_path is enumerated instead.
func ResolveFiles(cfg model.Configuration, paths []string) ([]string, error) {
	if len(paths) == 0 {
		if cfg.RootPath == "" {
			return nil, fmt.Errorf("no paths given and no root_path configured")
		}

		paths = []string{cfg.RootPath}
	}

	var files []string

	for _, path := range paths {
		resolved, err := resolvePath(cfg, path)
		if err != nil {
			return nil, err
		}

		files = append(files, resolved...)
	}

	return files, nil
}

func resolvePath(cfg model.Configuration, path string) ([]string, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	if stat.IsDir() {
		return playlist.EnumerateRoot(path, cfg.IncludeSubfolders)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".m3u" || ext == ".m3u8" {
		return playlist.Parse(path, filepath.Dir(path))
	}

	if _, ok := model.FormatFromExtension(ext); ok {
		return []string{path}, nil
	}

	logger.Warnf(context.Background(), "skipping unsupported path %s", path)

	return nil, nil
}

// RunsDir returns the per-user runs/ folder the result playlists land in.
func RunsDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "runs"
	}

	return filepath.Join(base, "autotagger", "runs")
}

// Run executes the full pass: the Auto-Tagger Scheduler over files, then
// the Audio Features Sub-pipeline when enabled, draining the progress
// stream into a terminal progress bar.
func Run(ctx context.Context, loaded *config.Loaded, files []string) (Summary, error) {
	var summary Summary

	if len(files) == 0 {
		return summary, nil
	}

	stop := &atomic.Bool{}

	go func() {
		<-ctx.Done()
		stop.Store(true)
	}()

	httpClient := writer.RestyClient{
		Client: resty.New().SetTimeout(http_transport.DefaultTimeout),
	}

	progress := make(chan scheduler.Progress, len(files)*len(loaded.Configuration.Platforms))

	sched := &scheduler.Scheduler{ //nolint:exhaustruct // LoadInfo/LoadDuration/WriteTrack default to the real implementations.
		Config:     &loaded.Configuration,
		Stop:       stop,
		Progress:   progress,
		RunsDir:    RunsDir(),
		HTTPClient: httpClient,
	}

	// Progress bars are disabled above info level to avoid fighting the
	// structured logs for the terminal.
	var bar *progressbar.ProgressBar

	if logger.Level() <= zap.InfoLevel {
		bar = progressbar.Default(int64(len(files)*len(loaded.Configuration.Platforms)), "Tagging")
	}

	var drain sync.WaitGroup

	drain.Add(1)

	go func() {
		defer drain.Done()

		for event := range progress {
			switch event.Result.Status {
			case scheduler.StatusOk:
				summary.OK++
			case scheduler.StatusError:
				summary.Error++
			case scheduler.StatusSkipped:
				summary.Skipped++
			}

			if event.Result.Status != scheduler.StatusOk && event.Result.Message != "" {
				logger.Debugf(ctx, "%s on %s: %s", event.Platform, event.Result.Path, event.Result.Message)
			}

			if bar != nil {
				_ = bar.Add(1)
			}
		}
	}()

	err := sched.Run(ctx, files)

	close(progress)
	drain.Wait()

	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		return summary, err
	}

	if loaded.AudioFeaturesOn {
		runAudioFeatures(ctx, loaded, files, stop, &summary)
	}

	return summary, nil
}

// runAudioFeatures builds the Spotify client from the same custom-option
// bag the spotify adapter reads and runs the sequential features pass.
func runAudioFeatures(ctx context.Context, loaded *config.Loaded, files []string, stop *atomic.Bool, summary *Summary) {
	client, err := spotify.NewClient(loaded.Configuration.GetCustom(spotify.PlatformID), nil)
	if err != nil {
		logger.Errorf(ctx, "audio features disabled: %v", err)
		return
	}

	runner := &features.Runner{ //nolint:exhaustruct // LoadInfo/OpenContainer default to the real implementations.
		Client:   client,
		Features: loaded.AudioFeatures,
		Matching: &loaded.Configuration,
	}

	for _, result := range runner.Run(ctx, files, stop) {
		switch result.Status {
		case features.StatusOk:
			summary.FeaturesOK++
		case features.StatusError:
			summary.FeaturesError++
		case features.StatusSkipped:
			summary.FeaturesSkipped++
		}

		if result.Status != features.StatusOk && result.Message != "" {
			logger.Debugf(ctx, "audio features on %s: %s", result.Path, result.Message)
		}
	}
}
