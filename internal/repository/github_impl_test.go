package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGithubRepository(t *testing.T, handler http.Handler) *githubRepository {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	repo := newGithubRepository(server.Client(), "acme", "widgets")
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	repo.client.BaseURL = base
	return repo
}

func TestGithubRepository_CreateRelease(t *testing.T) {
	t.Run("Should publish a release for the tag", func(t *testing.T) {
		var received map[string]any
		repo := newTestGithubRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/repos/acme/widgets/releases", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":42,"tag_name":"v1.2.0","html_url":"https://github.com/acme/widgets/releases/v1.2.0"}`))
		}))
		release, err := repo.CreateRelease(context.Background(), "v1.2.0", "Release v1.2.0", "")
		require.NoError(t, err)
		assert.Equal(t, int64(42), release.ID)
		assert.Equal(t, "v1.2.0", release.TagName)
		assert.Equal(t, "v1.2.0", received["tag_name"])
		assert.Equal(t, false, received["prerelease"])
	})
	t.Run("Should return error when the API rejects the request", func(t *testing.T) {
		repo := newTestGithubRepository(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"Validation Failed"}`))
		}))
		_, err := repo.CreateRelease(context.Background(), "v1.2.0", "Release v1.2.0", "")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "failed to create release v1.2.0"))
	})
}

func TestGithubRepository_DeleteRelease(t *testing.T) {
	t.Run("Should delete the release", func(t *testing.T) {
		called := false
		repo := newTestGithubRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/repos/acme/widgets/releases/42", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}))
		require.NoError(t, repo.DeleteRelease(context.Background(), 42))
		assert.True(t, called)
	})
	t.Run("Should ignore releases that are already gone", func(t *testing.T) {
		repo := newTestGithubRepository(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		assert.NoError(t, repo.DeleteRelease(context.Background(), 42))
	})
}

func TestNewGithubRepository(t *testing.T) {
	t.Run("Should reject malformed tokens", func(t *testing.T) {
		_, err := NewGithubRepository("short", "acme", "widgets")
		assert.Error(t, err)
	})
	t.Run("Should reject invalid owner", func(t *testing.T) {
		_, err := NewGithubRepository("ghp_"+strings.Repeat("a", 36), "-acme", "widgets")
		assert.Error(t, err)
	})
}

func TestGithubNoopRepository(t *testing.T) {
	repo := NewGithubNoopRepository("acme", "widgets")
	_, err := repo.CreateRelease(context.Background(), "v1.0.0", "", "")
	assert.ErrorIs(t, err, ErrGithubTokenRequired)
	assert.ErrorIs(t, repo.DeleteRelease(context.Background(), 1), ErrGithubTokenRequired)
}

func TestIsPrerelease(t *testing.T) {
	assert.False(t, isPrerelease("v1.2.0"))
	assert.True(t, isPrerelease("v1.2.0-rc.1"))
	assert.False(t, isPrerelease("v1.2.0+build-5"))
	assert.False(t, isPrerelease("release-2024"))
	assert.False(t, isPrerelease("nightly-build"))
}
