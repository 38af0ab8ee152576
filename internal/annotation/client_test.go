package annotation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientLoad(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/annotations/doc1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(loadResponse{Annotations: []Annotation{validRect("doc1")}})
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	got, err := c.Load(context.Background(), "doc1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "doc1", got[0].DocumentID)
}

func TestClientLoadMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"annotations": [{`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Load(context.Background(), "doc1")
	assert.ErrorContains(t, err, "malformed annotation payload")
}

func TestClientLoadInvalidRecord(t *testing.T) {
	// Well-formed JSON whose records fail validation is a load
	// failure, not a half-parsed view.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"annotations": [{"id": "", "document_id": "doc1", "type": "rectangle"}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Load(context.Background(), "doc1")
	assert.ErrorContains(t, err, "malformed annotation record")
}

func TestClientLoadServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Load(context.Background(), "doc1")
	assert.ErrorContains(t, err, "status=500")
}

func TestClientSave(t *testing.T) {
	var received saveRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/annotations/save", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	set := []Annotation{validRect("doc1"), validComment("doc1")}
	require.NoError(t, c.Save(context.Background(), "doc1", set))

	assert.Equal(t, "doc1", received.DocumentID)
	assert.Len(t, received.Annotations, 2)
}

func TestClientSaveServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	err := c.Save(context.Background(), "doc1", []Annotation{validRect("doc1")})
	assert.ErrorContains(t, err, "status=400")
}

func TestClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewClient(server.URL, 20*time.Millisecond)
	_, err := c.Load(context.Background(), "doc1")
	assert.Error(t, err)
}
