package solution

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/specialistvlad/bigcity/internal/ctxlog"
	"github.com/specialistvlad/bigcity/internal/model"
	"golang.org/x/sync/errgroup"
)

// Options tune a Reader.
type Options struct {
	// Configuration and Platform select the OutputPath of each project.
	Configuration string
	Platform      string
	// Workers bounds how many project files are parsed at once.
	Workers int
	// CacheSize is the number of parsed project files kept in memory.
	CacheSize int
}

func (o *Options) applyDefaults() {
	if o.Configuration == "" {
		o.Configuration = "Release"
	}
	if o.Platform == "" {
		o.Platform = "Any CPU"
	}
	if o.Workers < 1 {
		o.Workers = 4
	}
	if o.CacheSize < 1 {
		o.CacheSize = 512
	}
}

// Reader lists the projects of one solution file. It implements
// pipeline.ProjectSource. Parsed project files are cached, so a Reader may
// be reused cheaply.
type Reader struct {
	path  string
	dir   string
	opts  Options
	cache *lru.Cache[string, *projectFile]
}

// NewReader returns a Reader for the solution at path.
func NewReader(path string, opts Options) (*Reader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("solution path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve solution path: %w", err)
	}
	opts.applyDefaults()
	cache, err := lru.New[string, *projectFile](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create project cache: %w", err)
	}
	return &Reader{path: abs, dir: filepath.Dir(abs), opts: opts, cache: cache}, nil
}

// Path returns the absolute solution file path.
func (r *Reader) Path() string { return r.path }

// Dir returns the solution directory, the root artifact paths are relative to.
func (r *Reader) Dir() string { return r.dir }

// candidate is a solution entry that points at a project file.
type candidate struct {
	entry Entry
	path  string
}

// Projects parses the solution and its project files. Projects are returned
// in solution order; entries whose file does not exist are skipped.
func (r *Reader) Projects(ctx context.Context) ([]model.RawProject, error) {
	logger := ctxlog.FromContext(ctx).With("solution", r.path)

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open solution: %w", err)
	}
	entries, err := ParseSolution(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	for _, e := range entries {
		if e.IsFolder() {
			logger.Debug("Skipping solution folder.", "name", e.Name)
			continue
		}
		candidates = append(candidates, candidate{entry: e, path: resolvePath(r.dir, e.RelativePath)})
	}

	parsed := make([]*projectFile, len(candidates))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.opts.Workers)
	for i, c := range candidates {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			pf, err := r.load(c.path)
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn("Skipping project whose file does not exist.", "name", c.entry.Name, "path", c.path)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to parse project %s: %w", c.path, err)
			}
			parsed[i] = pf
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Identities must be known for every project before references are
	// matched by path.
	byPath := make(map[string]uuid.UUID)
	identities := make([]uuid.UUID, len(candidates))
	for i, pf := range parsed {
		if pf == nil {
			continue
		}
		identities[i] = pf.guid
		if identities[i] == uuid.Nil {
			identities[i] = candidates[i].entry.GUID
		}
		byPath[candidates[i].path] = identities[i]
	}

	var projects []model.RawProject
	for i, pf := range parsed {
		if pf == nil {
			continue
		}
		projectDir := filepath.Dir(candidates[i].path)
		projects = append(projects, model.RawProject{
			Identity:     identities[i],
			FilePath:     candidates[i].path,
			OutputFolder: resolvePath(projectDir, pf.outputPath(r.opts.Configuration, r.opts.Platform)),
			References:   r.references(ctx, projectDir, pf, byPath),
		})
	}
	logger.Debug("Solution read.", "entries", len(entries), "projects", len(projects))
	return projects, nil
}

// references resolves the identity of each ProjectReference: the <Project>
// metadata first, then a solution project at the referenced path, then the
// referenced file itself. A reference nothing identifies keeps uuid.Nil.
func (r *Reader) references(ctx context.Context, projectDir string, pf *projectFile, byPath map[string]uuid.UUID) []model.Reference {
	var refs []model.Reference
	for _, item := range pf.references {
		ref := model.Reference{Include: item.Include}
		if id, err := uuid.Parse(strings.TrimSpace(item.Project)); err == nil && id != uuid.Nil {
			ref.Identity = id
			refs = append(refs, ref)
			continue
		}

		target := resolvePath(projectDir, item.Include)
		if id, ok := byPath[target]; ok {
			ref.Identity = id
		} else if loaded, err := r.load(target); err == nil {
			ref.Identity = loaded.guid
		} else {
			ctxlog.FromContext(ctx).Debug("Cannot identify project reference.", "include", item.Include, "error", err)
		}
		refs = append(refs, ref)
	}
	return refs
}

// load returns the parsed project file at path, from the cache when possible.
func (r *Reader) load(path string) (*projectFile, error) {
	if pf, ok := r.cache.Get(path); ok {
		return pf, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pf, err := parseProjectFile(f)
	if err != nil {
		return nil, err
	}
	r.cache.Add(path, pf)
	return pf, nil
}

// resolvePath joins a possibly backslashed relative path onto base. An
// absolute rel is returned cleaned.
func resolvePath(base, rel string) string {
	p := filepath.FromSlash(strings.ReplaceAll(strings.TrimSpace(rel), `\`, "/"))
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
