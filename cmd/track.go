package main

import (
	"context"
	"fmt"
	"time"

	"github.com/chenBenjamin97/repcounter/pkg/metrics"
	"github.com/chenBenjamin97/repcounter/pkg/store"
	"github.com/chenBenjamin97/repcounter/pkg/tracking"
	"github.com/chenBenjamin97/repcounter/pkg/tui"
	"github.com/chenBenjamin97/repcounter/pkg/utils"
	"github.com/chenBenjamin97/repcounter/pkg/video"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var (
	trackExercise string
	trackSource   string
	trackAssist   bool
	trackRecord   bool
)

func newTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Count repetitions live from the local camera",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrack(cmd)
		},
	}

	cmd.Flags().StringVar(&trackExercise, "exercise", "", "exercise to count (see 'history' or GET /api/Exercises)")
	cmd.Flags().StringVar(&trackSource, "source", utils.SourceCamera, "pose source: camera or process")
	cmd.Flags().BoolVar(&trackAssist, "assist", false, "count a rep after every idle window without movement")
	cmd.Flags().BoolVar(&trackRecord, "record", false, "record an annotated video of the session")
	_ = cmd.MarkFlagRequired("exercise")

	return cmd
}

func runTrack(cmd *cobra.Command) (err error) {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.store.Close())
	}()

	exercise, err := a.catalog.Get(trackExercise)
	if err != nil {
		return fmt.Errorf("%w: %s, known exercises: %v", err, trackExercise, a.catalog.Names())
	}

	if cmd.Flags().Changed("assist") {
		a.cfg.Tracking.AssistMode = trackAssist
	}
	if cmd.Flags().Changed("record") {
		a.cfg.Tracking.Record = trackRecord
	}

	var estimator *video.Estimator
	if trackSource == utils.SourceCamera {
		estimator = a.newEstimator()
		defer func() {
			err = multierr.Append(err, estimator.Close())
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "loading pose model '%s' ...\n", a.cfg.Model.Path)
		if err := <-estimator.Load(); err != nil {
			return err
		}
	}

	source, err := a.sources(estimator)(trackSource, exercise.Name)
	if err != nil {
		return err
	}

	tracker := tracking.NewTracker(source, a.trackingOptions(exercise, trackSource, a.cfg.Tracking.AssistMode),
		metrics.NewManager("repcounter", "track", prometheus.NewRegistry()))
	if err := tracker.Start(cmd.Context()); err != nil {
		return err
	}

	if _, err := tea.NewProgram(tui.NewModel(tracker)).Run(); err != nil {
		log.Errorf("track: Error running live view, got '%v'", err)
	}

	summary, stopErr := tracker.Stop()
	if stopErr != nil {
		log.Errorf("track: %v", stopErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := a.store.SaveSession(ctx, store.Session{
		Exercise:     summary.Exercise,
		Source:       summary.Source,
		Reps:         summary.Reps,
		AssistedReps: summary.AssistedReps,
		AssistMode:   summary.AssistMode,
		StartedAt:    summary.StartedAt,
		EndedAt:      summary.EndedAt,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d reps (%d assisted) in %s, saved as %s\n",
		session.Exercise, session.Reps, session.AssistedReps, session.Duration().Truncate(time.Second), session.ID)

	return nil
}
