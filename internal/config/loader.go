package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"
	"github.com/specialistvlad/bigcity/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Variables that supply credentials when the file sets neither a password
// nor a token.
const (
	EnvPassword = "BIGCITY_PASSWORD"
	EnvToken    = "BIGCITY_TOKEN"
)

// Loader reads configuration files.
type Loader struct {
	environ func() []string
}

// NewLoader creates a loader that sees the process environment.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// Load decodes the HCL file at path and applies defaults. A missing file
// yields the defaults unless required is set. envFile names an optional
// dotenv file whose variables are added to env.* where the process
// environment does not define them.
func (l *Loader) Load(ctx context.Context, path, envFile string, required bool) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	env, err := l.environment(envFile)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			logger.Debug("No configuration file, using defaults.", "path", path)
			m := Default()
			applyCredentials(m, env)
			return m, nil
		}
		return nil, fmt.Errorf("error accessing config file %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envObject(env)},
	}
	var m Model
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &m); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	m.ApplyDefaults()
	applyCredentials(&m, env)

	logger.Debug("Configuration loaded.", "path", path, "env_vars", len(env))
	return &m, nil
}

// environment merges the process environment with envFile.
func (l *Loader) environment(envFile string) (map[string]string, error) {
	env := make(map[string]string)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok && name != "" {
			env[name] = value
		}
	}
	if envFile == "" {
		return env, nil
	}

	fromFile, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return env, nil
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}
	for name, value := range fromFile {
		if _, set := env[name]; !set {
			env[name] = value
		}
	}
	return env, nil
}

func applyCredentials(m *Model, env map[string]string) {
	if m.Server.Password != "" || m.Server.Token != "" {
		return
	}
	m.Server.Password = env[EnvPassword]
	m.Server.Token = env[EnvToken]
}

// envObject exposes variables as an object so that a missing name is
// reported as an unsupported attribute.
func envObject(env map[string]string) cty.Value {
	attrs := make(map[string]cty.Value, len(env))
	for name, value := range env {
		if hclName(name) {
			attrs[name] = cty.StringVal(value)
		}
	}
	return cty.ObjectVal(attrs)
}

// hclName reports whether name can be written as env.NAME.
func hclName(name string) bool {
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && (r == '-' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return name != ""
}
