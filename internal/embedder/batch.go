// Package embedder provides implementations of the rag.Embedder interface: a
// local feature-hashing embedder and HTTP clients for Ollama and
// OpenAI-compatible (including Azure) embedding endpoints.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// defaultBatchSize caps the number of texts sent in one remote request.
const defaultBatchSize = 64

// embedBatched calls fn on consecutive slices of at most size texts and
// concatenates the results, checking each call returns one vector per text.
func embedBatched(ctx context.Context, texts []string, size int, fn func(context.Context, []string) ([][]float32, error)) ([][]float32, error) {
	if size <= 0 {
		size = defaultBatchSize
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vecs, err := fn(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-start, len(vecs))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// postJSON marshals body, POSTs it to url with headers, and decodes the
// response into out. The status code is returned so callers can build their
// own error message from the decoded body.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

func isSuccess(status int) bool { return status >= 200 && status < 300 }
