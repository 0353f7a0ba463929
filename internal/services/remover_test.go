package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplicateRemover_PollsUntilSucceeded(t *testing.T) {
	var polls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/predictions":
			assert.Equal(t, "Bearer r8_test", r.Header.Get("Authorization"))
			assert.Equal(t, "wait", r.Header.Get("Prefer"))

			var body struct {
				Version string            `json:"version"`
				Input   map[string]string `json:"input"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "v1", body.Version)
			assert.Equal(t, "https://zara.com/y.png", body.Input["image"])

			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id":"p1","status":"starting","urls":{"get":"`+srv.URL+`/predictions/p1"}}`)
		case r.URL.Path == "/predictions/p1":
			if polls.Add(1) < 2 {
				io.WriteString(w, `{"id":"p1","status":"processing","urls":{"get":"`+srv.URL+`/predictions/p1"}}`)
				return
			}
			io.WriteString(w, `{"id":"p1","status":"succeeded","output":"`+srv.URL+`/out.png"}`)
		case r.URL.Path == "/out.png":
			io.WriteString(w, "clean-png")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewReplicateRemover(srv.Client(), srv.URL+"/", "r8_test", "v1", time.Millisecond)

	body, err := r.RemoveBackground(context.Background(), "https://zara.com/y.png")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "clean-png", string(data))
	assert.Equal(t, int32(2), polls.Load())
}

func TestReplicateRemover_ArrayOutput(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/predictions" {
			io.WriteString(w, `{"status":"succeeded","output":["`+srv.URL+`/first.png"]}`)
			return
		}
		io.WriteString(w, r.URL.Path)
	}))
	defer srv.Close()

	body, err := NewReplicateRemover(srv.Client(), srv.URL, "t", "v", time.Millisecond).
		RemoveBackground(context.Background(), "https://zara.com/y.png")
	require.NoError(t, err)
	defer body.Close()

	data, _ := io.ReadAll(body)
	assert.Equal(t, "/first.png", string(data))
}

func TestReplicateRemover_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"prediction failed", http.StatusOK, `{"status":"failed","error":"CUDA out of memory"}`, "CUDA out of memory"},
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Invalid token."}`, "Invalid token."},
		{"garbage", http.StatusOK, `not json`, "invalid json"},
		{"no poll url", http.StatusOK, `{"status":"processing"}`, "no poll url"},
		{"no output", http.StatusOK, `{"status":"succeeded"}`, "no output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewReplicateRemover(srv.Client(), srv.URL, "t", "v", time.Millisecond).
				RemoveBackground(context.Background(), "https://zara.com/y.png")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReplicateRemover_StopsPollingOnCancel(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"processing","urls":{"get":"`+srv.URL+`/predictions/p1"}}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewReplicateRemover(srv.Client(), srv.URL, "t", "v", 10*time.Millisecond).
		RemoveBackground(ctx, "https://zara.com/y.png")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPassthroughRemover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "original")
	}))
	defer srv.Close()

	p := NewPassthroughRemover(srv.Client())

	body, err := p.RemoveBackground(context.Background(), srv.URL+"/shirt.png")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "original", string(data))

	_, err = p.RemoveBackground(context.Background(), srv.URL+"/missing.png")
	assert.Error(t, err)
}
