package teamcity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/specialistvlad/bigcity/internal/ctxlog"
	"github.com/specialistvlad/bigcity/internal/pipeline"
)

// Project is a project as listed by the server.
type Project struct {
	ID       string
	Name     string
	ParentID string
}

// ListProjects returns every project visible to the credentials.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var list projectList
	err := c.call(ctx, http.MethodGet, "/projects", map[string]string{}, nil, &list)
	if err != nil {
		return nil, err
	}
	out := make([]Project, 0, len(list.Project))
	for _, p := range list.Project {
		out = append(out, Project{ID: p.ID, Name: p.Name, ParentID: p.ParentProjectID})
	}
	return out, nil
}

// Ping checks that the server is reachable and accepts the credentials by
// listing projects. Any failure is a ConnectivityError.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.ListProjects(ctx); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return &ConnectivityError{URL: c.url, Status: apiErr.Status, Err: err}
		}
		return &ConnectivityError{URL: c.url, Err: err}
	}
	return nil
}

// FindProjectByName returns the first project with exactly the given name.
func (c *Client) FindProjectByName(ctx context.Context, name string) (Project, bool, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return Project{}, false, err
	}
	for _, p := range projects {
		if p.Name == name {
			return p, true, nil
		}
	}
	return Project{}, false, nil
}

// DeleteProject removes a project and everything below it.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/projects/id:{id}", map[string]string{"id": id}, nil, nil)
}

// CreateProject creates a project under parentID and returns its id.
func (c *Client) CreateProject(ctx context.Context, parentID, name string) (string, error) {
	if parentID == "" {
		parentID = RootProjectID
	}
	var created projectRef
	body := newProject{Name: name, ParentProject: locator{Locator: "id:" + parentID}}
	if err := c.call(ctx, http.MethodPost, "/projects", map[string]string{}, body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("create project %q: %w", name, ErrEmptyResult)
	}
	return created.ID, nil
}

// EnsureTarget probes the server, applies the duplicate-name policy and
// creates the top-level project the layers will live in.
func (c *Client) EnsureTarget(ctx context.Context, parentID, name string, replace bool) (pipeline.Target, error) {
	logger := ctxlog.FromContext(ctx)
	if err := c.Ping(ctx); err != nil {
		return pipeline.Target{}, err
	}
	if c.vcsRootID != "" {
		if err := c.requireVCSRoot(ctx, c.vcsRootID); err != nil {
			return pipeline.Target{}, err
		}
	}

	existing, found, err := c.FindProjectByName(ctx, name)
	if err != nil {
		return pipeline.Target{}, fmt.Errorf("failed to check for duplicate project: %w", err)
	}
	if found {
		if !replace {
			return pipeline.Target{}, &DuplicateNameError{Name: name, ID: existing.ID}
		}
		logger.Warn("Deleting existing project.", "name", name, "id", existing.ID)
		if err := c.DeleteProject(ctx, existing.ID); err != nil {
			return pipeline.Target{}, fmt.Errorf("failed to delete existing project %s: %w", existing.ID, err)
		}
	}

	id, err := c.CreateProject(ctx, parentID, name)
	if err != nil {
		return pipeline.Target{}, fmt.Errorf("failed to create project %q, check the user has the rights to do so: %w", name, err)
	}
	logger.Info("Created target project.", "name", name, "id", id)
	return pipeline.Target{ID: id, Name: name}, nil
}

// CreateContainer implements pipeline.Provisioner with a sub-project.
func (c *Client) CreateContainer(ctx context.Context, parentID, name string) (string, error) {
	return c.CreateProject(ctx, parentID, name)
}
