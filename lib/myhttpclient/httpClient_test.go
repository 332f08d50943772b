package myhttpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New("test")

	t.Run("Success", func(t *testing.T) {
		req, err := http.NewRequestWithContext(context.TODO(), http.MethodGet, server.URL+"/v1/plans/plan_a", nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Error status is passed on", func(t *testing.T) {
		req, err := http.NewRequestWithContext(context.TODO(), http.MethodGet, server.URL+"/missing", nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Connection refused", func(t *testing.T) {
		req, err := http.NewRequestWithContext(context.TODO(), http.MethodGet, "http://127.0.0.1:1/", nil)
		require.NoError(t, err)

		_, err = client.Do(req)
		assert.Error(t, err)
	})
}
