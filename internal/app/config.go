package app

import "errors"

// Config holds the command-line settings of a single run. Empty or zero
// fields leave the value from the configuration file untouched.
type Config struct {
	SolutionPath string // .sln file or directory holding one

	ConfigPath     string
	ConfigRequired bool
	EnvFile        string

	ServerURL   string
	Username    string
	ProjectName string
	Parent      string
	Replace     bool
	VCSRoot     string

	DryRun           bool
	PlanOut          string
	Workers          int
	StrictReferences bool

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.SolutionPath == "" {
		return nil, errors.New("SolutionPath is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 0 {
		return nil, errors.New("Workers cannot be negative")
	}
	return &cfg, nil
}
