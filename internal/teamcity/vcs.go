package teamcity

import (
	"context"
	"fmt"
	"net/http"
)

// VCSRoot is a version control root defined on the server.
type VCSRoot struct {
	ID   string
	Name string
}

// ListVCSRoots returns every VCS root visible to the credentials.
func (c *Client) ListVCSRoots(ctx context.Context) ([]VCSRoot, error) {
	var list vcsRootList
	if err := c.call(ctx, http.MethodGet, "/vcs-roots", map[string]string{}, nil, &list); err != nil {
		return nil, err
	}
	out := make([]VCSRoot, 0, len(list.VCSRoot))
	for _, r := range list.VCSRoot {
		out = append(out, VCSRoot{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (c *Client) requireVCSRoot(ctx context.Context, id string) error {
	roots, err := c.ListVCSRoots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list vcs roots: %w", err)
	}
	for _, r := range roots {
		if r.ID == id {
			return nil
		}
	}
	return fmt.Errorf("vcs root %q does not exist on the server", id)
}
