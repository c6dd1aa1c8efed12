package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remote is a SPARQL endpoint that answers probes, serves a fixed graph to
// CONSTRUCT queries and records updates.
type remote struct {
	*httptest.Server
	mu      sync.Mutex
	updates []string
}

func newRemote(t *testing.T) *remote {
	t.Helper()
	r := &remote{}
	r.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.NoError(t, req.ParseForm())
		if u := req.PostForm.Get("update"); u != "" {
			r.mu.Lock()
			r.updates = append(r.updates, u)
			r.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
			return
		}
		q := req.PostForm.Get("query")
		if strings.HasPrefix(q, "ASK") {
			w.Header().Set("Content-Type", "application/sparql-results+json")
			_, _ = w.Write([]byte(`{"head":{},"boolean":true}`))
			return
		}
		w.Header().Set("Content-Type", "text/turtle")
		_, _ = w.Write([]byte(`<urn:semsync:post:remote> <http://purl.org/dc/terms/title> "from remote" .` + "\n"))
	}))
	t.Cleanup(r.Close)
	return r
}

func (r *remote) lastUpdate() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return ""
	}
	return r.updates[len(r.updates)-1]
}

// writeConfig writes a project config using the file backend under dir.
func writeConfig(t *testing.T, dir, endpointURL string) string {
	t.Helper()
	cfg := fmt.Sprintf(`store:
  backend: file
  path: data
endpoints:
  - url: %s/query
    type: query
  - url: %s/update
    type: update
`, endpointURL, endpointURL)
	path := filepath.Join(dir, "semsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func execute(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "semsync version "+Version)
}

func TestPostCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "http://127.0.0.1:1")

	out, err := execute(t, cfgPath, "post", "add", "--type", "entry", "--title", "Hello", "--tag", "go", "--tag", "rdf")
	require.NoError(t, err)
	var created struct {
		ID    string `json:"id"`
		Added int    `json:"added"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.True(t, strings.HasPrefix(created.ID, "urn:semsync:post:"))
	assert.Positive(t, created.Added)

	_, err = execute(t, cfgPath, "post", "update", created.ID, "--title", "Hello again")
	require.NoError(t, err)

	out, err = execute(t, cfgPath, "post", "get", created.ID)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Hello again", got["title"])
	assert.ElementsMatch(t, []any{"go", "rdf"}, got["tags"])

	out, err = execute(t, cfgPath, "post", "list", "--tag", "rdf")
	require.NoError(t, err)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0]["id"])

	out, err = execute(t, cfgPath, "post", "tags")
	require.NoError(t, err)
	assert.Contains(t, out, `"tag": "go"`)

	_, err = execute(t, cfgPath, "post", "delete", created.ID)
	require.NoError(t, err)

	_, err = execute(t, cfgPath, "post", "get", created.ID)
	assert.Error(t, err)
}

func TestPostAddRejectsInvalidInput(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), "http://127.0.0.1:1")
	_, err := execute(t, cfgPath, "post", "add", "--type", "link", "--title", "no url")
	assert.Error(t, err)
}

func TestPostFieldsCommand(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), "http://127.0.0.1:1")
	out, err := execute(t, cfgPath, "post", "fields")
	require.NoError(t, err)

	var fields []fieldInfo
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	require.NotEmpty(t, fields)

	byName := make(map[string]fieldInfo, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	assert.Equal(t, "http://purl.org/dc/terms/title", byName["post.meta.title"].IRI)
	assert.Equal(t, "http://www.w3.org/2002/01/bookmark#recalls", byName["post.link.url"].IRI)
	assert.Equal(t, "datetime", byName["post.time.created"].DataType)
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "http://127.0.0.1:1")

	_, err := execute(t, cfgPath, "post", "add", "--id", "urn:semsync:post:one", "--type", "wiki", "--title", "One")
	require.NoError(t, err)

	out, err := execute(t, cfgPath, "export", "--format", "nt")
	require.NoError(t, err)
	assert.Contains(t, out, `<urn:semsync:post:one> <http://purl.org/dc/terms/title> "One" .`)

	target := filepath.Join(dir, "out.trig")
	_, err = execute(t, cfgPath, "export", "-f", "trig", "-o", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "urn:semsync:post:one")

	_, err = execute(t, cfgPath, "export", "--format", "rdfxml")
	assert.Error(t, err)
}

func TestPullAndPush(t *testing.T) {
	srv := newRemote(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, srv.URL)

	out, err := execute(t, cfgPath, "pull")
	require.NoError(t, err)
	assert.Contains(t, out, `"added": 1`)

	out, err = execute(t, cfgPath, "export", "--format", "nt")
	require.NoError(t, err)
	assert.Contains(t, out, "from remote")

	_, err = execute(t, cfgPath, "push", "--graph", "http://example.org/g")
	require.NoError(t, err)
	update := srv.lastUpdate()
	assert.Contains(t, update, "CLEAR SILENT GRAPH <http://example.org/g>")
	assert.Contains(t, update, `"from remote"`)

	_, err = execute(t, cfgPath, "push")
	assert.Error(t, err, "push without a graph must fail")
}

func TestEndpointCommands(t *testing.T) {
	srv := newRemote(t)
	cfgPath := writeConfig(t, t.TempDir(), srv.URL)

	out, err := execute(t, cfgPath, "endpoint", "add", srv.URL+"/extra", "--type", "query", "--user", "ada", "--password", "secret", "--check")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "active"`)
	assert.NotContains(t, out, "secret")

	out, err = execute(t, cfgPath, "endpoint", "list")
	require.NoError(t, err)
	assert.Contains(t, out, srv.URL+"/extra")
	assert.NotContains(t, out, "secret")

	out, err = execute(t, cfgPath, "endpoint", "check")
	require.NoError(t, err)
	assert.Contains(t, out, `"any_active": true`)

	_, err = execute(t, cfgPath, "endpoint", "remove", srv.URL+"/extra")
	require.NoError(t, err)

	out, err = execute(t, cfgPath, "endpoint", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, srv.URL+"/extra")

	_, err = execute(t, cfgPath, "endpoint", "add", "not a url")
	assert.Error(t, err)
}
