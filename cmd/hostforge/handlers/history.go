package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hostforge/hostforge/internal/journal"
)

// History handles the history command.
//
// Without a run ID it lists the most recent runs; with one it lists the
// stages of that run.
func History(ctx context.Context, configPath string, limit int, runID string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("%w: --limit must be positive", ErrUsage)
	}

	path := cfg.State.JournalPath
	if path == "" {
		return fmt.Errorf("%w: no journal path configured", ErrUsage)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(stdout, "No runs recorded yet.")
		return nil
	}

	j, err := openJournal(path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	if runID != "" {
		stages, err := j.Stages(ctx, runID)
		if err != nil {
			return err
		}
		if len(stages) == 0 {
			return fmt.Errorf("%w: no stages recorded for run %s", ErrUsage, runID)
		}
		printStages(stdout, stages)
		return nil
	}

	runs, err := j.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(stdout, "No runs recorded yet.")
		return nil
	}
	printRuns(stdout, runs, time.Now())
	return nil
}

func printRuns(w io.Writer, runs []journal.RunRecord, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tSTATE\tFAILED AT")
	for _, r := range runs {
		duration := "-"
		if d := r.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		failed := r.FailedStage
		if r.FailureKind != "" {
			failed = fmt.Sprintf("%s (%s)", r.FailedStage, r.FailureKind)
		}
		if failed == "" {
			failed = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, humanize.RelTime(r.StartedAt, now, "ago", "from now"), duration, r.State, failed)
	}
	_ = tw.Flush()
}

func printStages(w io.Writer, stages []journal.StageRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STAGE\tDURATION\tRESULT\tERROR")
	for _, s := range stages {
		msg := s.Error
		if msg == "" {
			msg = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Stage, s.Duration.Round(time.Millisecond), s.Result, msg)
	}
	_ = tw.Flush()
}
