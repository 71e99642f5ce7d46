package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quimbellmunt/medscan/config"
	"github.com/quimbellmunt/medscan/model"
)

// EntityService talks to the synchronous entity-annotation service. The
// service caps input at MaxTextBytes per call; callers chunk longer text
// with ChunkText before invoking it.
type EntityService struct {
	config     *config.EntitiesConfig
	httpClient *http.Client
}

func NewEntityService(cfg *config.EntitiesConfig) *EntityService {
	c := *cfg
	if c.MaxTextBytes <= 0 {
		c.MaxTextBytes = 20000
	}
	// errgroup.SetLimit(0) permits no goroutines at all, so an unset
	// parallelism must fall back to the default.
	if c.Parallelism <= 0 {
		c.Parallelism = 4
	}
	return &EntityService{
		config: &c,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Entities []model.Entity `json:"entities"`
	Error    string         `json:"error,omitempty"`
}

// DetectEntities annotates a single piece of text. Input longer than the
// service's byte limit is rejected locally before any request is made.
func (s *EntityService) DetectEntities(ctx context.Context, text string) ([]model.Entity, error) {
	if len(text) > s.config.MaxTextBytes {
		return nil, fmt.Errorf("text is %d bytes, exceeds service limit of %d", len(text), s.config.MaxTextBytes)
	}

	jsonData, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+"/v1/entities", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("entity API error: %s, body: %s", resp.Status, string(body))
	}

	var result detectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return result.Entities, nil
}

// AnnotateText chunks text to the service's byte limit and annotates the
// chunks concurrently, bounded by the configured parallelism. Entities are
// returned in chunk order with their chunk index set.
func (s *EntityService) AnnotateText(ctx context.Context, text string) ([]model.Entity, error) {
	chunks := ChunkText(text, s.config.MaxTextBytes)
	if len(chunks) == 0 {
		return nil, nil
	}

	results := make([][]model.Entity, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Parallelism)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			entities, err := s.DetectEntities(gctx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			results[i] = entities
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.Entity
	for i, entities := range results {
		for _, e := range entities {
			e.Chunk = i
			all = append(all, e)
		}
	}
	return all, nil
}

// ChunkText splits text into fixed-size byte windows of at most maxBytes,
// with no overlap and no sentence-boundary awareness. The concatenation of
// the chunks is exactly the input.
func ChunkText(text string, maxBytes int) []string {
	if text == "" {
		return nil
	}
	if maxBytes <= 0 || len(text) <= maxBytes {
		return []string{text}
	}

	chunks := make([]string, 0, (len(text)+maxBytes-1)/maxBytes)
	for start := 0; start < len(text); start += maxBytes {
		end := start + maxBytes
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}
