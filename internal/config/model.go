package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Reference policies for project references that match no project.
const (
	PolicyWarn  = "warn"
	PolicyError = "error"
)

// Model is the decoded configuration file.
type Model struct {
	Server   *Server   `hcl:"server,block"`
	Target   *Target   `hcl:"target,block"`
	Build    *Build    `hcl:"build,block"`
	Progress *Progress `hcl:"progress,block"`

	// UnresolvedReferences is PolicyWarn or PolicyError.
	UnresolvedReferences string `hcl:"unresolved_references,optional"`
	// Workers bounds concurrent requests within one layer.
	Workers int `hcl:"workers,optional"`
}

// Server describes the TeamCity server and its credentials.
type Server struct {
	URL      string `hcl:"url,optional"`
	Username string `hcl:"username,optional"`
	Password string `hcl:"password,optional"`
	// Token takes precedence over Username and Password.
	Token   string `hcl:"token,optional"`
	Timeout string `hcl:"timeout,optional"`
	// VCSRoot is attached to every created build configuration when set.
	VCSRoot string `hcl:"vcs_root,optional"`
}

// Target is the project created on the server to hold the layers.
type Target struct {
	Name            string `hcl:"name,optional"`
	Parent          string `hcl:"parent,optional"`
	ReplaceExisting bool   `hcl:"replace_existing,optional"`
}

// Build holds the constants of every build step.
type Build struct {
	RunnerType     string `hcl:"runner_type,optional"`
	Configuration  string `hcl:"configuration,optional"`
	Platform       string `hcl:"platform,optional"`
	MSBuildVersion string `hcl:"msbuild_version,optional"`
	ToolsVersion   string `hcl:"tools_version,optional"`
}

// Progress configures the optional socket.io progress feed.
type Progress struct {
	URL       string `hcl:"url"`
	Namespace string `hcl:"namespace,optional"`
}

// Default returns a model with every default applied.
func Default() *Model {
	m := &Model{}
	m.ApplyDefaults()
	return m
}

// ApplyDefaults fills every empty field with its default.
func (m *Model) ApplyDefaults() {
	if m.Server == nil {
		m.Server = &Server{}
	}
	if m.Server.Timeout == "" {
		m.Server.Timeout = "30s"
	}
	if m.Target == nil {
		m.Target = &Target{}
	}
	if m.Target.Parent == "" {
		m.Target.Parent = "_Root"
	}
	if m.Build == nil {
		m.Build = &Build{}
	}
	b := m.Build
	setDefault(&b.RunnerType, "MSBuild")
	setDefault(&b.Configuration, "Release")
	setDefault(&b.Platform, "Any CPU")
	setDefault(&b.MSBuildVersion, "16.0")
	setDefault(&b.ToolsVersion, "15.0")
	if m.Progress != nil && m.Progress.Namespace == "" {
		m.Progress.Namespace = "/"
	}
	if m.UnresolvedReferences == "" {
		m.UnresolvedReferences = PolicyWarn
	}
	if m.Workers == 0 {
		m.Workers = 4
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Timeout returns the parsed server timeout.
func (m *Model) Timeout() time.Duration {
	d, err := time.ParseDuration(m.Server.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// StrictReferences reports whether unresolved references fail the run.
func (m *Model) StrictReferences() bool {
	return m.UnresolvedReferences == PolicyError
}

// Validate checks a model after defaults and overrides were applied. A dry
// run needs no server.
func (m *Model) Validate(dryRun bool) error {
	var errs []error
	if !dryRun {
		if strings.TrimSpace(m.Server.URL) == "" {
			errs = append(errs, errors.New("server.url is required"))
		}
	}
	if d, err := time.ParseDuration(m.Server.Timeout); err != nil || d < 0 {
		errs = append(errs, fmt.Errorf("server.timeout %q is not a valid duration", m.Server.Timeout))
	}
	if strings.TrimSpace(m.Target.Name) == "" {
		errs = append(errs, errors.New("target.name is required"))
	}
	switch m.UnresolvedReferences {
	case PolicyWarn, PolicyError:
	default:
		errs = append(errs, fmt.Errorf("unresolved_references must be %q or %q, got %q", PolicyWarn, PolicyError, m.UnresolvedReferences))
	}
	if m.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", m.Workers))
	}
	if m.Progress != nil && strings.TrimSpace(m.Progress.URL) == "" {
		errs = append(errs, errors.New("progress.url is required when a progress block is present"))
	}
	return errors.Join(errs...)
}
