package project

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectJSON = `{
	"id": "proj1",
	"title": "Sistema de gestión académica",
	"metadata": {"current_version": 2, "status": "in_review"},
	"versions": [
		{"number": 1, "files": [{"file_id": "f1", "file_path": "projects/proj1/f1", "file_type": "pdf"}]},
		{"number": 2, "files": [{"file_id": "f2", "file_path": "projects/proj1/f2", "file_type": "pdf"}]}
	]
}`

func TestGetAndCurrentFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/projects/proj1", r.URL.Path)
		w.Write([]byte(projectJSON))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	p, err := c.Get(context.Background(), "proj1")
	require.NoError(t, err)
	assert.Equal(t, "Sistema de gestión académica", p.Title)

	f, err := p.CurrentFile()
	require.NoError(t, err)
	assert.Equal(t, "f2", f.FileID)
}

func TestCurrentFileMissingVersion(t *testing.T) {
	p := &Project{ID: "p", Metadata: Metadata{CurrentVersion: 3}}
	_, err := p.CurrentFile()
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/projects", r.URL.Path)
		w.Write([]byte(`{"projects": [` + projectJSON + `]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	list, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "proj1", list[0].ID)
}

func TestParseDocx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/docx/parse/proj1", r.URL.Path)
		w.Write([]byte(`{"html": "<p>Capítulo I</p>"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	html, err := c.ParseDocx(context.Background(), "proj1")
	require.NoError(t, err)
	assert.Equal(t, "<p>Capítulo I</p>", html)
}

func TestFetchFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/uploads/projects/proj1/f2", r.URL.Path)
		w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	data, err := c.FetchFile(context.Background(), "projects/proj1/f2")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestGetServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorContains(t, err, "status=404")
}
