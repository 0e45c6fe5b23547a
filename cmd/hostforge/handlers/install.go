package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/journal"
	"github.com/hostforge/hostforge/internal/metrics"
	"github.com/hostforge/hostforge/internal/provisioning"
	"github.com/hostforge/hostforge/internal/provisioning/preflight"
)

// InstallOptions are the install command flags.
type InstallOptions struct {
	ConfigPath string
	Yes        bool
	NoLaunch   bool
	Timeout    time.Duration
	Verbosity  int
	Version    string
}

var (
	openJournal = journal.Open

	confirmReplace = func(ctx context.Context, root string) (bool, error) {
		ok := false
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Replace the existing installation at %s?", root)).
					Description("The directory is deleted and recreated from the release bundle.").
					Affirmative("Replace").
					Negative("Abort").
					Value(&ok),
			),
		).RunWithContext(ctx)
		return ok, err
	}
)

// Install handles the install command.
//
// It runs the full provisioning pipeline under the host run lock, records
// the run in the journal and the metrics textfile, and finally hands the
// process over to the application entry point unless launching is disabled.
func Install(ctx context.Context, opts InstallOptions) error {
	rep := newReporter(opts.Verbosity)
	log := rep.Logger()

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.NoLaunch {
		cfg.Launch.Enabled = false
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// The lock lives in a root-owned directory, so without root the lock
	// error would hide the real precondition.
	host := currentHost()
	if err := preflight.CheckPrivilege(host.EUID()); err != nil {
		return &provisioning.StageError{
			Stage: provisioning.StagePreconditions,
			Step:  "privilege",
			Kind:  provisioning.PreconditionFailure,
			Err:   err,
		}
	}

	lock, err := acquireLock(cfg.State.LockFile)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	if !opts.Yes && isInteractive() && rootExists(cfg.InstallRoot) {
		ok, err := confirmReplace(ctx, cfg.InstallRoot)
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			return ErrAborted
		}
	}

	runID := newRunID()
	timeouts := config.LoadTimeouts()
	runner := newRunner(log, timeouts)
	observer := provisioning.NewConsoleObserver(rep).WithFields(map[string]string{"run": shortID(runID)})

	pctx := provisioning.NewContext(ctx, cfg, runID, runner, observer, log)

	pipeline := provisioning.NewPipeline(stages(runner,
		newSources(log, cfg, timeouts), newKeyFetcher(log, timeouts), host)...)

	rec := metrics.NewRecorder()
	pipeline.Recorders = append(pipeline.Recorders, rec)

	var run *journal.Run
	j := openRunJournal(pctx)
	if j != nil {
		defer func() { _ = j.Close() }()
		if run, err = j.Begin(ctx, runID, opts.Version, log); err != nil {
			provisioning.LogWarning(observer, "journal", fmt.Sprintf("run not recorded: %v", err))
		} else {
			pipeline.Recorders = append(pipeline.Recorders, run)
		}
	}

	observer.Info("Provisioning %s (run %s)", cfg.InstallRoot, runID)
	runErr := pipeline.Run(pctx)

	// Record the outcome even when the run context was cancelled.
	finishCtx := context.WithoutCancel(ctx)
	if run != nil {
		if err := run.Finish(finishCtx, pipeline.Machine().Current(), runErr); err != nil {
			log.Error(err, "failed to record run outcome")
		}
	}
	rec.Finish(runErr)
	if err := rec.WriteTextfile(cfg.State.MetricsTextfile); err != nil {
		provisioning.LogWarning(observer, "metrics", err.Error())
	}

	if runErr != nil {
		return runErr
	}

	observer.Success("Host is ready: %s", cfg.InstallRoot)
	h := pctx.State.Handoff
	if h == nil {
		return nil
	}
	if !cfg.Launch.Enabled {
		observer.Info("Launch skipped; start the application with %s", h.Path)
		return nil
	}

	// exec does not return, so release everything first
	if j != nil {
		_ = j.Close()
	}
	_ = lock.Release()

	observer.Info("Launching %s", h.Path)
	return handoff(h)
}

// openRunJournal opens the run journal. A journal that cannot be opened
// only produces a warning.
func openRunJournal(pctx *provisioning.Context) *journal.Journal {
	path := pctx.Config.State.JournalPath
	if path == "" {
		return nil
	}
	j, err := openJournal(path)
	if err != nil {
		provisioning.LogWarning(pctx.Observer, "journal", fmt.Sprintf("journal unavailable: %v", err))
		return nil
	}
	return j
}

func rootExists(root string) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return !errors.Is(err, os.ErrNotExist)
	}
	return len(entries) > 0
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
