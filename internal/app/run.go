package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/specialistvlad/bigcity/internal/config"
	"github.com/specialistvlad/bigcity/internal/dryrun"
	"github.com/specialistvlad/bigcity/internal/fsutil"
	"github.com/specialistvlad/bigcity/internal/model"
	"github.com/specialistvlad/bigcity/internal/pipeline"
	"github.com/specialistvlad/bigcity/internal/progress"
	"github.com/specialistvlad/bigcity/internal/solution"
)

// progressConnectTimeout bounds the wait for the optional progress feed.
const progressConnectTimeout = 5 * time.Second

// Run executes one synthesis: it loads the configuration, reads the
// solution, prepares the target project and provisions every layer.
func (a *App) Run(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.Run method started.")

	cfgModel, err := a.loader.Load(ctx, a.config.ConfigPath, a.config.EnvFile, a.config.ConfigRequired)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	slnPath, err := fsutil.FindSolution(a.config.SolutionPath)
	if err != nil {
		return fmt.Errorf("failed to locate solution: %w", err)
	}
	a.applyOverrides(cfgModel, slnPath)
	if err := cfgModel.Validate(a.config.DryRun); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.logger.Debug("Configuration merged.", "solution", slnPath, "target", cfgModel.Target.Name, "workers", cfgModel.Workers)

	reader, err := solution.NewReader(slnPath, solution.Options{
		Configuration: cfgModel.Build.Configuration,
		Platform:      cfgModel.Build.Platform,
		Workers:       cfgModel.Workers,
	})
	if err != nil {
		return err
	}

	sink, closeSinks := a.sinks(ctx, cfgModel)
	defer closeSinks()

	var (
		recorder *dryrun.Recorder
		prov     remote
	)
	if a.config.DryRun {
		a.logger.Info("Dry run, no server will be contacted.")
		recorder = dryrun.NewRecorder()
		prov = recorder
	} else {
		client, err := newRemote(ctx, cfgModel)
		if err != nil {
			return fmt.Errorf("failed to configure server client: %w", err)
		}
		defer client.Close()
		prov = client
	}

	target, err := prov.EnsureTarget(ctx, cfgModel.Target.Parent, cfgModel.Target.Name, cfgModel.Target.ReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to prepare target project: %w", err)
	}
	a.logger.Info("Target project ready.", "id", target.ID, "name", target.Name)

	synth, err := pipeline.New(prov, pipeline.Config{
		Settings:         settings(cfgModel, reader),
		Workers:          cfgModel.Workers,
		Sink:             sink,
		StrictReferences: cfgModel.StrictReferences(),
	})
	if err != nil {
		return fmt.Errorf("failed to configure synthesis: %w", err)
	}
	plan, runErr := synth.Synthesize(ctx, target, reader)

	if a.config.PlanOut != "" {
		reported := plan
		if reported == nil {
			// Layering failed before anything was provisioned.
			reported = pipeline.NewPlan(target)
		}
		report := newPlanReport(reported, a.config.DryRun, runErr)
		if err := writePlanReport(a.config.PlanOut, report); err != nil {
			runErr = errors.Join(runErr, err)
		} else {
			a.logger.Info("Plan written.", "path", a.config.PlanOut)
		}
	}
	if runErr != nil {
		return fmt.Errorf("synthesis failed: %w", runErr)
	}

	if recorder != nil {
		if err := recorder.WriteYAML(a.outW); err != nil {
			return fmt.Errorf("failed to print recorded operations: %w", err)
		}
	}

	a.logger.Info("🏁 Project hierarchy created.",
		"target", target.ID,
		"layers", len(plan.Layers()),
		"tasks", plan.TaskCount(),
		"unresolved_references", len(plan.Unresolved()),
	)
	a.logger.Debug("App.Run method finished.")
	return nil
}

// applyOverrides layers the command-line settings over the file model.
func (a *App) applyOverrides(m *config.Model, slnPath string) {
	c := a.config
	override(&m.Server.URL, c.ServerURL)
	override(&m.Server.Username, c.Username)
	override(&m.Server.VCSRoot, c.VCSRoot)
	override(&m.Target.Name, c.ProjectName)
	override(&m.Target.Parent, c.Parent)
	if c.Replace {
		m.Target.ReplaceExisting = true
	}
	if c.Workers > 0 {
		m.Workers = c.Workers
	}
	if c.StrictReferences {
		m.UnresolvedReferences = config.PolicyError
	}
	if m.Target.Name == "" {
		m.Target.Name = model.Stem(slnPath)
	}
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}

// sinks builds the progress sink of a run and the function releasing it. A
// progress feed that cannot be reached is logged and skipped.
func (a *App) sinks(ctx context.Context, m *config.Model) (progress.Sink, func()) {
	all := append([]progress.Sink{progress.LogSink{}}, a.extraSinks...)
	if m.Progress == nil {
		return progress.Multi(all...), func() {}
	}

	feed, err := progress.DialSocket(ctx, progress.SocketOptions{
		URL:            m.Progress.URL,
		Namespace:      m.Progress.Namespace,
		ConnectTimeout: progressConnectTimeout,
	})
	if err != nil {
		a.logger.Warn("Progress feed unavailable, continuing without it.", "url", m.Progress.URL, "error", err)
		return progress.Multi(all...), func() {}
	}
	return progress.Multi(append(all, feed)...), func() { _ = feed.Close() }
}

func settings(m *config.Model, reader *solution.Reader) pipeline.Settings {
	return pipeline.Settings{
		SolutionRoot:   reader.Dir(),
		SolutionFile:   filepath.Base(reader.Path()),
		WorkingDir:     fsutil.CheckoutRelativeDir(reader.Dir()),
		RunnerType:     m.Build.RunnerType,
		Configuration:  m.Build.Configuration,
		Platform:       m.Build.Platform,
		MSBuildVersion: m.Build.MSBuildVersion,
		ToolsVersion:   m.Build.ToolsVersion,
	}
}
