package memory

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/memory/project-notes", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"value": "remember this"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok")
	raw, err := client.Get(context.Background(), "project-notes")
	require.NoError(t, err)
	assert.JSONEq(t, `{"value": "remember this"}`, string(raw))
}

func TestClientPutSendsValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"value": {"lang": "go"}}`, string(body))
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Put(context.Background(), "prefs", json.RawMessage(`{"lang": "go"}`))
	require.NoError(t, err)
}

func TestClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/memory/search", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query": "deployment"}`, string(body))
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	raw, err := client.Search(context.Background(), "deployment")
	require.NoError(t, err)
	assert.JSONEq(t, `{"results": []}`, string(raw))
}

func TestClientRelaysRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "no such key"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Get(context.Background(), "missing")
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	assert.Contains(t, svcErr.Body, "no such key")
}

func TestClientEscapesKeys(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Get(context.Background(), "a/b c")
	require.NoError(t, err)
	assert.Equal(t, "/v1/memory/a%2Fb%20c", gotPath)
}
