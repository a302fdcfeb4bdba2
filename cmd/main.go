package main

import (
	"fmt"
	"os"
	"time"

	"github.com/chenBenjamin97/repcounter/pkg/api"
	"github.com/chenBenjamin97/repcounter/pkg/config"
	"github.com/chenBenjamin97/repcounter/pkg/logging"
	"github.com/chenBenjamin97/repcounter/pkg/reps"
	"github.com/chenBenjamin97/repcounter/pkg/store"
	"github.com/chenBenjamin97/repcounter/pkg/tracking"
	"github.com/chenBenjamin97/repcounter/pkg/utils"
	"github.com/chenBenjamin97/repcounter/pkg/video"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "repcounter",
		Short:        "Counts exercise repetitions from body pose keypoints",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default: ./config.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTrackCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

//app holds what every command needs: configuration, exercises and session history
type app struct {
	cfg     *config.Config
	catalog reps.Catalog
	store   *store.Store
}

func newApp(logToStdout bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.Log.File,
		LogToStdout:      cfg.Log.Stdout && logToStdout,
		LogLevel:         cfg.Log.Level,
		LogFormatJSON:    cfg.Log.JSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.Sentry.Enabled,
		SentryDSN:        cfg.Sentry.DSN,
		SentryServerName: "repcounter",
	})

	//create missing directories from config file
	for _, dir := range cfg.Directories() {
		if err := utils.EnsureDir(dir); err != nil {
			log.Errorf("Error creating '%s' directory, got '%v'", dir, err)
		}
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, catalog: catalog, store: db}, nil
}

func (a *app) newEstimator() *video.Estimator {
	return video.NewEstimator(a.cfg.Model.Path, a.cfg.Model.InputSize, a.cfg.Model.MinConfidence)
}

//sources creates camera pipelines sharing the estimator, and external estimator processes
func (a *app) sources(estimator *video.Estimator) api.SourceFactory {
	return func(kind, exercise string) (tracking.PoseSource, error) {
		switch kind {
		case utils.SourceCamera:
			var recorder *video.Recorder
			if a.cfg.Tracking.Record {
				fps := float64(time.Second) / float64(a.cfg.Tracking.FrameInterval)
				recorder = video.NewRecorder(a.cfg.Directory.Recordings, exercise, fps, time.Now())
			}
			camera := video.NewCamera(a.cfg.Camera.Device, a.cfg.Camera.Width, a.cfg.Camera.Height)
			return video.NewPipeline(camera, estimator, recorder, a.cfg.Tracking.MinKeypointScore), nil
		case utils.SourceProcess:
			if a.cfg.Estimator.Command == "" {
				return nil, fmt.Errorf("%w: estimator.command is not configured", api.ErrUnsupportedSource)
			}
			return tracking.NewProcessSource(a.cfg.Estimator.Command)
		default:
			return nil, fmt.Errorf("%w: %s", api.ErrUnsupportedSource, kind)
		}
	}
}

func (a *app) trackingOptions(exercise reps.Exercise, source string, assist bool) tracking.Options {
	return tracking.Options{
		Exercise:      exercise,
		Source:        source,
		AssistMode:    assist,
		IdleWindow:    a.cfg.Tracking.IdleWindow,
		FrameInterval: a.cfg.Tracking.FrameInterval,
		MinScore:      a.cfg.Tracking.MinKeypointScore,
		Smoothing:     a.cfg.Tracking.Smoothing,
	}
}
