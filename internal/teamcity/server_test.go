package teamcity

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeServer emulates the subset of the TeamCity REST API the client uses.
type fakeServer struct {
	t *testing.T

	mu         sync.Mutex
	seq        int
	projects   map[string]projectRef
	buildTypes map[string]*fakeBuildType
	vcsRoots   []vcsRootRef
	requests   []string
	deleted    []string

	// username/password or token the server accepts.
	username, password, token string
	// failPath makes matching requests answer 500.
	failPath string
}

type fakeBuildType struct {
	ref           buildTypeRef
	description   string
	artifactRules string
	steps         []buildStep
	snapshots     []dependency
	artifacts     []dependency
	vcsRoots      []string
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	f := &fakeServer{
		t:          t,
		projects:   map[string]projectRef{"_Root": {ID: "_Root", Name: "<Root project>"}},
		buildTypes: make(map[string]*fakeBuildType),
		username:   "admin",
		password:   "secret",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /app/rest/projects", f.listProjects)
	mux.HandleFunc("POST /app/rest/projects", f.createProject)
	mux.HandleFunc("DELETE /app/rest/projects/{loc}", f.deleteProject)
	mux.HandleFunc("POST /app/rest/projects/{loc}/buildTypes", f.createBuildType)
	mux.HandleFunc("PUT /app/rest/buildTypes/{loc}/description", f.setText(func(bt *fakeBuildType, v string) { bt.description = v }))
	mux.HandleFunc("PUT /app/rest/buildTypes/{loc}/settings/artifactRules", f.setText(func(bt *fakeBuildType, v string) { bt.artifactRules = v }))
	mux.HandleFunc("POST /app/rest/buildTypes/{loc}/steps", f.addStep)
	mux.HandleFunc("POST /app/rest/buildTypes/{loc}/snapshot-dependencies", f.addDependency(false))
	mux.HandleFunc("POST /app/rest/buildTypes/{loc}/artifact-dependencies", f.addDependency(true))
	mux.HandleFunc("GET /app/rest/vcs-roots", f.listVCSRoots)
	mux.HandleFunc("POST /app/rest/buildTypes/{loc}/vcs-root-entries", f.attachVCSRoot)

	srv := httptest.NewServer(f.authorize(mux))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeServer) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		failPath, token := f.failPath, f.token
		f.mu.Unlock()

		ok := false
		if token != "" {
			ok = r.Header.Get("Authorization") == "Bearer "+token
		} else if u, p, has := r.BasicAuth(); has {
			ok = u == f.username && p == f.password
		}
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		if failPath != "" && strings.HasSuffix(r.URL.Path, failPath) {
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakeServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.t.Errorf("encode response: %v", err)
	}
}

func (f *fakeServer) decode(r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		f.t.Errorf("decode %s %s: %v", r.Method, r.URL.Path, err)
		return false
	}
	return true
}

func (f *fakeServer) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func locID(loc string) string { return strings.TrimPrefix(loc, "id:") }

func (f *fakeServer) listProjects(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := projectList{}
	for _, p := range f.projects {
		list.Project = append(list.Project, p)
	}
	list.Count = len(list.Project)
	f.writeJSON(w, list)
}

func (f *fakeServer) createProject(w http.ResponseWriter, r *http.Request) {
	var body newProject
	if !f.decode(r, &body) {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	parent := locID(body.ParentProject.Locator)
	if _, ok := f.projects[parent]; !ok {
		http.Error(w, "parent not found", http.StatusNotFound)
		return
	}
	p := projectRef{ID: f.nextID("Project"), Name: body.Name, ParentProjectID: parent}
	f.projects[p.ID] = p
	f.writeJSON(w, p)
}

func (f *fakeServer) deleteProject(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pid := locID(r.PathValue("loc"))
	if _, ok := f.projects[pid]; !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	delete(f.projects, pid)
	f.deleted = append(f.deleted, pid)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeServer) createBuildType(w http.ResponseWriter, r *http.Request) {
	var body newBuildType
	if !f.decode(r, &body) {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	pid := locID(r.PathValue("loc"))
	if _, ok := f.projects[pid]; !ok {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	bt := &fakeBuildType{ref: buildTypeRef{ID: f.nextID("Bt"), Name: body.Name, ProjectID: pid}}
	f.buildTypes[bt.ref.ID] = bt
	f.writeJSON(w, bt.ref)
}

// withBuildType runs fn on the addressed build type under the lock.
func (f *fakeServer) withBuildType(w http.ResponseWriter, r *http.Request, fn func(bt *fakeBuildType)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bt, ok := f.buildTypes[locID(r.PathValue("loc"))]
	if !ok {
		http.Error(w, "build type not found", http.StatusNotFound)
		return
	}
	fn(bt)
}

func (f *fakeServer) setText(set func(bt *fakeBuildType, v string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			http.Error(w, "unsupported media type "+ct, http.StatusUnsupportedMediaType)
			return
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.withBuildType(w, r, func(bt *fakeBuildType) {
			set(bt, string(raw))
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write(raw)
		})
	}
}

func (f *fakeServer) addStep(w http.ResponseWriter, r *http.Request) {
	var body buildStep
	if !f.decode(r, &body) {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	f.withBuildType(w, r, func(bt *fakeBuildType) {
		body.ID = fmt.Sprintf("RUNNER_%d", len(bt.steps)+1)
		bt.steps = append(bt.steps, body)
		f.writeJSON(w, body)
	})
}

func (f *fakeServer) addDependency(artifact bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body dependency
		if !f.decode(r, &body) {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		f.withBuildType(w, r, func(bt *fakeBuildType) {
			if _, ok := f.buildTypes[body.SourceBuildType.ID]; !ok {
				http.Error(w, "source build type not found", http.StatusNotFound)
				return
			}
			if artifact {
				bt.artifacts = append(bt.artifacts, body)
			} else {
				bt.snapshots = append(bt.snapshots, body)
			}
			f.writeJSON(w, body)
		})
	}
}

func (f *fakeServer) listVCSRoots(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeJSON(w, vcsRootList{Count: len(f.vcsRoots), VCSRoot: f.vcsRoots})
}

func (f *fakeServer) attachVCSRoot(w http.ResponseWriter, r *http.Request) {
	var body vcsRootEntry
	if !f.decode(r, &body) {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	f.withBuildType(w, r, func(bt *fakeBuildType) {
		bt.vcsRoots = append(bt.vcsRoots, body.VCSRoot.ID)
		f.writeJSON(w, body)
	})
}

// snapshot helpers for assertions.

func (f *fakeServer) projectsByName() map[string]projectRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]projectRef)
	for _, p := range f.projects {
		out[p.Name] = p
	}
	return out
}

func (f *fakeServer) buildTypeByName(name string) *fakeBuildType {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, bt := range f.buildTypes {
		if bt.ref.Name == name {
			return bt
		}
	}
	return nil
}

func (f *fakeServer) requestLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func propertyMap(p properties) map[string]string {
	out := make(map[string]string)
	for _, kv := range p.Property {
		out[kv.Name] = kv.Value
	}
	return out
}

// newPlainServer serves mux without authentication and returns its URL.
func newPlainServer(t *testing.T, mux *http.ServeMux) string {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}
