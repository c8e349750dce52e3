package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const scrollPageSize = 256

// QdrantStore talks to Qdrant over its REST API.
type QdrantStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewQdrantStore creates a gateway for the Qdrant instance at baseURL.
func NewQdrantStore(baseURL, apiKey string) *QdrantStore {
	return &QdrantStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant status %d: %s", e.code, e.body)
}

func (s *QdrantStore) DescribeCollection(ctx context.Context, name string) (CollectionInfo, error) {
	data, err := s.doRequest(ctx, http.MethodGet, collectionPath(name), nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return CollectionInfo{}, nil
		}
		return CollectionInfo{}, err
	}
	var parsed struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return CollectionInfo{}, fmt.Errorf("decode collection info: %w", err)
	}
	return CollectionInfo{Found: true, VectorSize: parsed.Result.Config.Params.Vectors.Size}, nil
}

func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dim int) error {
	req := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if _, err := s.doRequest(ctx, http.MethodPut, collectionPath(name), req); err != nil {
		return err
	}
	// Keyword index on file_path keeps delete-by-file cheap.
	index := map[string]any{
		"field_name":   "file_path",
		"field_schema": "keyword",
	}
	_, err := s.doRequest(ctx, http.MethodPut, collectionPath(name)+"/index?wait=true", index)
	return err
}

func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	_, err := s.doRequest(ctx, http.MethodDelete, collectionPath(name), nil)
	return err
}

func (s *QdrantStore) DeleteByFilePath(ctx context.Context, name, path string) error {
	req := map[string]any{
		"filter": mustFilter(matchFilter("file_path", path)),
	}
	_, err := s.doRequest(ctx, http.MethodPost, collectionPath(name)+"/points/delete?wait=true", req)
	return err
}

func (s *QdrantStore) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	payload := make([]map[string]any, 0, len(points))
	for _, p := range points {
		payload = append(payload, map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		})
	}
	req := map[string]any{"points": payload}
	_, err := s.doRequest(ctx, http.MethodPut, collectionPath(name)+"/points?wait=true", req)
	return err
}

func (s *QdrantStore) Search(ctx context.Context, name string, vector []float32, limit int) ([]ScoredPoint, error) {
	if limit <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	data, err := s.doRequest(ctx, http.MethodPost, collectionPath(name)+"/points/search", req)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Result []struct {
			ID      any     `json:"id"`
			Score   float64 `json:"score"`
			Payload Payload `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	hits := make([]ScoredPoint, 0, len(parsed.Result))
	for _, item := range parsed.Result {
		hits = append(hits, ScoredPoint{
			ID:      fmt.Sprintf("%v", item.ID),
			Score:   item.Score,
			Payload: item.Payload,
		})
	}
	return hits, nil
}

func (s *QdrantStore) FilePaths(ctx context.Context, name string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	var offset any
	for {
		req := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": []string{"file_path"},
			"with_vector":  false,
		}
		if offset != nil {
			req["offset"] = offset
		}
		data, err := s.doRequest(ctx, http.MethodPost, collectionPath(name)+"/points/scroll", req)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			Result struct {
				Points []struct {
					Payload struct {
						FilePath string `json:"file_path"`
					} `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("decode scroll response: %w", err)
		}
		for _, p := range parsed.Result.Points {
			if fp := p.Payload.FilePath; fp != "" && !seen[fp] {
				seen[fp] = true
				paths = append(paths, fp)
			}
		}
		if parsed.Result.NextPageOffset == nil {
			break
		}
		offset = parsed.Result.NextPageOffset
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *QdrantStore) Close() error { return nil }

func (s *QdrantStore) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewBuffer(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

func matchFilter(key string, value any) map[string]any {
	return map[string]any{
		"key": key,
		"match": map[string]any{
			"value": value,
		},
	}
}

func mustFilter(conditions ...map[string]any) map[string]any {
	return map[string]any{
		"must": conditions,
	}
}
