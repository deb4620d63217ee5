package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"gocv.io/x/gocv"

	"github.com/banshee-data/trackcam/internal/config"
	"github.com/banshee-data/trackcam/internal/monitoring"
	"github.com/banshee-data/trackcam/internal/pipeline"
	"github.com/banshee-data/trackcam/internal/timeutil"
	"github.com/banshee-data/trackcam/internal/tracking"
	"github.com/banshee-data/trackcam/internal/tracklog"
	"github.com/banshee-data/trackcam/internal/video"
)

func newRunCmd(rc config.RuntimeConfig) *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Track a target in a camera or video stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := monitoring.SetLevel(rc.LogLevel); err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			var overridden []string
			cmd.Flags().Visit(func(f *pflag.Flag) { overridden = append(overridden, f.Name) })
			if len(overridden) > 0 {
				monitoring.Logger().Debug().Strs("flags", overridden).Msg("flags override environment")
			}
			return run(cmd.Context(), rc, region)
		},
	}

	// Flag defaults come from TRACKCAM_* so flags override the environment.
	f := cmd.Flags()
	f.StringVar(&rc.Source, "source", rc.Source, "camera index or video file")
	f.StringVar(&rc.TuningPath, "tuning", rc.TuningPath, "tuning config file (.json or .toml)")
	f.StringVar(&rc.WindowName, "window", rc.WindowName, "preview window title")
	f.StringVar(&rc.RecordPath, "record", rc.RecordPath, "record results to this SQLite database")
	f.BoolVar(&rc.Enhance, "enhance", rc.Enhance, "apply contrast/sharpen preprocessing before tracking")
	f.BoolVar(&rc.Watch, "watch", rc.Watch, "reload the tuning file when it changes")
	f.BoolVar(&rc.Headless, "headless", rc.Headless, "run without a preview window")
	f.StringVar(&rc.LogLevel, "log-level", rc.LogLevel, "log level (debug, info, warn, error)")
	f.StringVar(&region, "region", "", "initial target region as x,y,w,h")
	return cmd
}

func run(ctx context.Context, rc config.RuntimeConfig, initialRegion string) error {
	log := monitoring.Logger()

	if err := rc.Validate(); err != nil {
		return err
	}

	tuning := config.EmptyTuningConfig()
	if rc.TuningPath != "" {
		t, err := config.LoadTuningConfig(rc.TuningPath)
		if err != nil {
			return fmt.Errorf("load tuning: %w", err)
		}
		tuning = t
	}
	log.Info().Interface("runtime", rc).Interface("tuning", tuning).Msg("configuration")

	factory, err := video.NewTrackerFactory(tuning.GetTrackerKind())
	if err != nil {
		return err
	}
	requests := tracking.NewRegionRequests(tuning.GetClickRegionSize())
	orch := tracking.NewOrchestrator(factory, requests, tracking.ConfigFromTuning(tuning))

	if initialRegion != "" {
		r, err := tracking.ParseRegion(initialRegion)
		if err != nil {
			return err
		}
		if err := requests.Submit(r); err != nil {
			return err
		}
	}

	src, err := video.OpenSource(rc.Source)
	if err != nil {
		return err
	}
	var frames interface {
		pipeline.FrameSource[gocv.Mat]
		Close() error
	} = src
	if rc.Enhance {
		frames = video.NewEnhancedSource(src, video.NewEnhancer(video.DefaultEnhanceConfig()))
	}
	defer frames.Close()
	log.Info().Str("source", src.String()).Float64("fps", src.FPS()).Msg("source opened")

	loopCfg := pipeline.Config[gocv.Mat]{
		Source:  frames,
		Stepper: orch,
		Clock:   timeutil.RealClock{},
	}

	if !rc.Headless {
		win := video.NewWindow(rc.WindowName, requests, tuning.GetWaitKeyMs())
		defer win.Close()
		loopCfg.Display = win
	}

	if rc.RecordPath != "" {
		store, err := tracklog.Open(rc.RecordPath)
		if err != nil {
			return err
		}
		defer store.Close()
		loopCfg.Sinks = append(loopCfg.Sinks, store)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if rc.Watch && rc.TuningPath != "" {
		watcher := config.NewWatcher(rc.TuningPath, func(t *config.TuningConfig) {
			next := tracking.ConfigFromTuning(t)
			orch.UpdateConfig(func(c *tracking.Config) { *c = next })
		})
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Warn().Err(err).Msg("tuning watcher stopped")
			}
		}()
	}

	stats, err := pipeline.NewLoop(loopCfg).Run(ctx)
	log.Info().
		Str("reason", string(stats.Reason)).
		Int("frames", stats.Frames).
		Int("tracking", stats.Tracking).
		Int("coasting", stats.Coasting).
		Int("restarts", stats.Restarts).
		Int("init_failures", stats.InitFailures).
		Float64("fps", stats.FPS()).
		Msg("run finished")
	return err
}
