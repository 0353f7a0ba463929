package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// BackgroundRemover turns a source image URL into a stream of the image with
// its background removed. The caller closes the returned stream.
type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, imageURL string) (io.ReadCloser, error)
}

// ReplicateRemover runs the rembg model on Replicate and downloads the result.
type ReplicateRemover struct {
	client       *http.Client
	baseURL      string
	token        string
	version      string
	pollInterval time.Duration
}

// NewReplicateRemover creates a Replicate-backed remover
func NewReplicateRemover(client *http.Client, baseURL, token, version string, pollInterval time.Duration) *ReplicateRemover {
	if client == nil {
		client = http.DefaultClient
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &ReplicateRemover{
		client:       client,
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		version:      version,
		pollInterval: pollInterval,
	}
}

// RemoveBackground creates a prediction, waits for it to finish and opens
// the output image
func (r *ReplicateRemover) RemoveBackground(ctx context.Context, imageURL string) (io.ReadCloser, error) {
	body, err := json.Marshal(map[string]interface{}{
		"version": r.version,
		"input":   map[string]string{"image": imageURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	prediction, err := r.call(req)
	if err != nil {
		return nil, err
	}

	for {
		switch status := prediction.Get("status").String(); status {
		case "succeeded":
			return r.openOutput(ctx, prediction.Get("output"))
		case "failed", "canceled":
			return nil, fmt.Errorf("prediction %s: %s", status, prediction.Get("error").String())
		}

		pollURL := prediction.Get("urls.get").String()
		if pollURL == "" {
			return nil, fmt.Errorf("prediction has no poll url")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build poll request: %w", err)
		}
		if prediction, err = r.call(req); err != nil {
			return nil, err
		}
	}
}

func (r *ReplicateRemover) call(req *http.Request) (gjson.Result, error) {
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("replicate request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read replicate response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return gjson.Result{}, fmt.Errorf("replicate returned %d: %s", resp.StatusCode, gjson.GetBytes(data, "detail").String())
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("replicate returned invalid json")
	}
	return gjson.ParseBytes(data), nil
}

func (r *ReplicateRemover) openOutput(ctx context.Context, output gjson.Result) (io.ReadCloser, error) {
	if output.IsArray() {
		output = output.Get("0")
	}
	outputURL := output.String()
	if outputURL == "" {
		return nil, fmt.Errorf("prediction has no output")
	}
	return download(ctx, r.client, outputURL)
}

// PassthroughRemover returns the source image unchanged. It is meant for
// development setups without a Replicate token.
type PassthroughRemover struct {
	client *http.Client
}

// NewPassthroughRemover creates a remover that only downloads the source
func NewPassthroughRemover(client *http.Client) *PassthroughRemover {
	if client == nil {
		client = http.DefaultClient
	}
	return &PassthroughRemover{client: client}
}

// RemoveBackground downloads imageURL as is
func (p *PassthroughRemover) RemoveBackground(ctx context.Context, imageURL string) (io.ReadCloser, error) {
	return download(ctx, p.client, imageURL)
}

func download(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("image download returned %d", resp.StatusCode)
	}
	return resp.Body, nil
}
