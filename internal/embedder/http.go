package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// apiError is a non-2xx reply from an embedding service.
type apiError struct {
	service string
	status  int
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s embed returned %d: %s", e.service, e.status, e.message)
}

// postJSON sends body as JSON and returns the raw reply. errMessage extracts
// a readable message from an error reply; nil falls back to the raw body.
func postJSON(ctx context.Context, client *http.Client, service, url string, headers map[string]string, body any, errMessage func([]byte) string) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s embed request: %w", service, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s embed response: %w", service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if errMessage != nil {
			msg = errMessage(data)
		}
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, &apiError{service: service, status: resp.StatusCode, message: msg}
	}
	return data, nil
}

// checkVectors verifies a reply carries one non-empty vector per input.
func checkVectors(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("expected %d embeddings, got %d", want, len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("embedding %d is empty", i)
		}
	}
	return nil
}
