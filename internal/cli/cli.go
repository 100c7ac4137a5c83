package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/bigcity/internal/app"
)

const (
	defaultConfigPath = "bigcity.hcl"
	defaultEnvFile    = ".env"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("bigcity", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
BigCity - Turns a Visual Studio solution into a layered TeamCity project.

Usage:
  bigcity [options] SOLUTION_PATH

Arguments:
  SOLUTION_PATH
    Path to a .sln file or a directory containing exactly one .sln file.

Environment:
  BIGCITY_PASSWORD, BIGCITY_TOKEN
    Used when the configuration file sets no password or token.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", defaultConfigPath, "Path to the HCL run configuration. Optional unless set explicitly.")
	envFileFlag := flagSet.String("env-file", defaultEnvFile, "Path to a .env file exposed to the configuration as env.NAME.")
	serverFlag := flagSet.String("server", "", "TeamCity server URL. Overrides server.url.")
	userFlag := flagSet.String("user", "", "TeamCity user name. Overrides server.username.")
	projectNameFlag := flagSet.String("project-name", "", "Name of the top-level project. Defaults to the solution file name.")
	parentFlag := flagSet.String("parent", "", "Id of the parent project. Overrides target.parent.")
	replaceFlag := flagSet.Bool("replace", false, "Delete an existing project with the same name before creating it.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Record the operations and print them as YAML instead of calling the server.")
	planOutFlag := flagSet.String("plan-out", "", "Write the resulting plan as YAML to this file.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent provisioning workers per layer. Overrides workers.")
	vcsRootFlag := flagSet.String("vcs-root", "", "Id of an existing VCS root attached to every build configuration.")
	strictFlag := flagSet.Bool("strict", false, "Fail when a project reference cannot be resolved.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No solution path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected a single solution path, got %d arguments", flagSet.NArg())}
	}

	set := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if set["workers"] && *workersFlag < 1 {
		return nil, false, &ExitError{Code: 2, Message: "invalid workers: must be at least 1"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		SolutionPath:     flagSet.Arg(0),
		ConfigPath:       *configFlag,
		ConfigRequired:   set["config"],
		EnvFile:          *envFileFlag,
		ServerURL:        *serverFlag,
		Username:         *userFlag,
		ProjectName:      *projectNameFlag,
		Parent:           *parentFlag,
		Replace:          *replaceFlag,
		DryRun:           *dryRunFlag,
		PlanOut:          *planOutFlag,
		Workers:          *workersFlag,
		VCSRoot:          *vcsRootFlag,
		StrictReferences: *strictFlag,
		LogFormat:        logFormat,
		LogLevel:         logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "solution", config.SolutionPath, "dry_run", config.DryRun)
	return config, false, nil
}
