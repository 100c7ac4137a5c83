package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/specialistvlad/bigcity/internal/config"
	"github.com/specialistvlad/bigcity/internal/ctxlog"
	"github.com/specialistvlad/bigcity/internal/pipeline"
	"github.com/specialistvlad/bigcity/internal/progress"
	"github.com/specialistvlad/bigcity/internal/teamcity"
)

// remote is a provisioner that can also prepare the top-level project.
type remote interface {
	pipeline.Provisioner
	EnsureTarget(ctx context.Context, parentID, name string, replace bool) (pipeline.Target, error)
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	loader *config.Loader

	// extraSinks receive progress events next to the log sink.
	extraSinks []progress.Sink
}

// NewApp is the constructor for the main application. Logs are written to
// logW; outW receives the dry-run operation listing.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: config.NewLoader(),
	}
}

// AddSink registers an additional progress sink for the next run.
func (a *App) AddSink(s progress.Sink) {
	a.extraSinks = append(a.extraSinks, s)
}

// newRemote connects to the configured TeamCity server.
func newRemote(ctx context.Context, m *config.Model) (*teamcity.Client, error) {
	return teamcity.New(ctx, teamcity.Options{
		URL:       m.Server.URL,
		Username:  m.Server.Username,
		Password:  m.Server.Password,
		Token:     m.Server.Token,
		Timeout:   m.Timeout(),
		VCSRootID: m.Server.VCSRoot,
	})
}

// withLogger returns ctx carrying the application's logger.
func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
