package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chenBenjamin97/repcounter/pkg/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

const defaultHistoryLimit = 20

var (
	historyExercise string
	historyLimit    int
)

var historyHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show saved sessions and totals per exercise",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd)
		},
	}

	cmd.Flags().StringVar(&historyExercise, "exercise", "", "only sessions of this exercise")
	cmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "max number of sessions, 0 for all")

	return cmd
}

func runHistory(cmd *cobra.Command) (err error) {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.store.Close())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions, err := a.store.ListSessions(ctx, store.ListParams{Exercise: historyExercise, Limit: historyLimit})
	if err != nil {
		return err
	}
	totals, err := a.store.Totals(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, sessionsTable(sessions))
	fmt.Fprintln(out, totalsTable(totals))

	return nil
}

func sessionsTable(sessions []store.Session) string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.Exercise,
			strconv.Itoa(s.Reps),
			strconv.Itoa(s.AssistedReps),
			s.Duration().Truncate(time.Second).String(),
			s.Source,
			s.ID,
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(headerStyleFunc).
		Headers("started", "exercise", "reps", "assisted", "duration", "source", "id").
		Rows(rows...).
		String()
}

func totalsTable(totals []store.ExerciseTotals) string {
	rows := make([][]string, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, []string{t.Exercise, strconv.Itoa(t.Sessions), strconv.Itoa(t.Reps), strconv.Itoa(t.AssistedReps)})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(headerStyleFunc).
		Headers("exercise", "sessions", "reps", "assisted").
		Rows(rows...).
		String()
}

func headerStyleFunc(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return historyHeaderStyle
	}
	return lipgloss.NewStyle()
}
