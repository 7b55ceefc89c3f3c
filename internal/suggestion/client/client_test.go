package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicchain/internal/suggestion/models"
)

func TestSuggestDepartment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/suggest-department", r.URL.Path)
		var req textRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "no water for a week", req.Text)
		_ = json.NewEncoder(w).Encode(departmentResponse{
			SuggestedDepartment: "water-supply", Confidence: 0.93, Reasoning: "mentions water", Category: "Utilities",
		})
	}))
	defer srv.Close()

	got, err := New(srv.URL+"/", time.Second).SuggestDepartment(context.Background(), "no water for a week")
	require.NoError(t, err)
	assert.Equal(t, "water-supply", got.Department)
	assert.Equal(t, models.SourceClassifier, got.Source)
	assert.InDelta(t, 0.93, got.Confidence, 1e-9)
}

func TestAnalyzePriority(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(priorityResponse{Priority: "URGENT", Reasoning: "public safety"})
	}))
	defer srv.Close()

	got, err := New(srv.URL, time.Second).AnalyzePriority(context.Background(), "live wire on road")
	require.NoError(t, err)
	assert.Equal(t, "urgent", got.Priority)
}

func TestErrors(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()
		_, err := New(srv.URL, time.Second).SuggestDepartment(context.Background(), "x")
		assert.Error(t, err)
	})

	t.Run("empty department", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()
		_, err := New(srv.URL, time.Second).SuggestDepartment(context.Background(), "x")
		assert.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()
		_, err := New(srv.URL, 20*time.Millisecond).AnalyzePriority(context.Background(), "x")
		assert.Error(t, err)
	})
}
