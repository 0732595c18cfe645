package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/resilience"
)

const upsertBatchSize = 256

// Client is a vector index backed by one Qdrant collection whose point IDs
// are slots. The collection uses cosine distance; scores are converted to
// 1 - score so lower is closer, matching the flat index.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

type StatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if msg := strings.TrimSpace(e.Body); msg != "" {
		return fmt.Sprintf("qdrant %s status: %s: %s", e.Operation, e.Status, msg)
	}
	return fmt.Sprintf("qdrant %s status: %s", e.Operation, e.Status)
}

func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

func (c *Client) Search(ctx context.Context, queryVector []float32, k int) ([]domain.Neighbor, error) {
	if k <= 0 {
		return []domain.Neighbor{}, nil
	}
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        k,
		"with_payload": false,
	}

	var searchResp struct {
		Result []struct {
			ID    json.RawMessage `json:"id"`
			Score float64         `json:"score"`
		} `json:"result"`
	}
	op := "search " + c.collection
	err := c.execute(ctx, op, func(callCtx context.Context) error {
		return c.doJSON(callCtx, http.MethodPost, "/points/search", reqBody, &searchResp, "search")
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Neighbor, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		slot, err := parsePointID(r.ID)
		if err != nil {
			return nil, fmt.Errorf("qdrant search: %w", err)
		}
		out = append(out, domain.Neighbor{Slot: slot, Distance: 1 - r.Score})
	}
	return out, nil
}

func (c *Client) Count(ctx context.Context) (int, error) {
	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := c.execute(ctx, "count "+c.collection, func(callCtx context.Context) error {
		return c.doJSON(callCtx, http.MethodPost, "/points/count", map[string]any{"exact": true}, &countResp, "count")
	})
	if err != nil {
		return 0, err
	}
	return countResp.Result.Count, nil
}

// WriteVectors replaces the collection contents with one point per slot.
func (c *Client) WriteVectors(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("qdrant write: no vectors")
	}
	if err := c.dropCollection(ctx); err != nil {
		return err
	}
	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      int            `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	for start := 0; start < len(vectors); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(vectors))
		points := make([]point, 0, end-start)
		for slot := start; slot < end; slot++ {
			points = append(points, point{
				ID:      slot,
				Vector:  vectors[slot],
				Payload: map[string]any{"slot": slot},
			})
		}
		err := c.execute(ctx, "upsert "+c.collection, func(callCtx context.Context) error {
			return c.doJSON(callCtx, http.MethodPut, "/points?wait=true", map[string]any{"points": points}, nil, "upsert")
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) dropCollection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.collectionURL(""), nil)
	if err != nil {
		return fmt.Errorf("create drop collection request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant drop collection request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return newStatusError("drop collection", resp)
	}

	c.ensureMu.Lock()
	c.ensuredCollection = false
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.collectionURL(""), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 409 when the collection already exists.
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		return newStatusError("ensure collection", resp)
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if c.executor == nil {
		err = fn(ctx)
	} else {
		err = c.executor.Execute(ctx, "qdrant_"+strings.ReplaceAll(operation, " ", "_"), fn, resilience.ClassifyHTTPError)
	}
	return resilience.WrapTemporary("qdrant "+operation, err, resilience.ClassifyHTTPError)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.collectionURL(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return newStatusError(operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func (c *Client) collectionURL(path string) string {
	return fmt.Sprintf("%s/collections/%s%s", c.baseURL, c.collection, path)
}

func newStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &StatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}

// parsePointID accepts numeric IDs, which is how slots are stored.
func parsePointID(raw json.RawMessage) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("point id %s is not a slot", string(raw))
	}
	return id, nil
}
