package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/quimbellmunt/medscan/config"
)

// JobStatus is the state reported by the analysis service for one job.
type JobStatus string

const (
	StatusSubmitted  JobStatus = "SUBMITTED"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusSucceeded  JobStatus = "SUCCEEDED"
	StatusFailed     JobStatus = "FAILED"
)

// AnalysisAPI is the wire surface of the asynchronous document-analysis
// service: start a job, poll its status, fetch one result page at a time.
type AnalysisAPI interface {
	StartJob(ctx context.Context, inputURL string, featureTypes []string) (string, error)
	GetJobStatus(ctx context.Context, jobID string) (*JobStatusResponse, error)
	GetResultPage(ctx context.Context, jobID, nextToken string) (*ResultPage, error)
}

// Block is one content block within a result page. Page is the block's
// page-local index as reported by the service.
type Block struct {
	Page int        `json:"page"`
	Type string     `json:"type"` // LINE, WORD, TABLE
	Text string     `json:"text"`
	Rows [][]string `json:"rows,omitempty"` // populated for TABLE blocks when TABLES is enabled
}

// ResultPage is one poll response worth of content blocks. NextToken, when
// present, must be sent back to obtain the following page.
type ResultPage struct {
	Blocks    []Block `json:"blocks"`
	NextToken string  `json:"next_token,omitempty"`
}

// JobStatusResponse is the status-poll response for one job.
type JobStatusResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Reason string    `json:"reason,omitempty"`
}

type startJobRequest struct {
	InputURL     string   `json:"input_url"`
	FeatureTypes []string `json:"feature_types,omitempty"`
}

type startJobResponse struct {
	JobID string `json:"job_id"`
	Error string `json:"error,omitempty"`
}

// AnalysisService talks to the external analysis service over HTTP.
type AnalysisService struct {
	config     *config.AnalysisConfig
	httpClient *http.Client
}

func NewAnalysisService(cfg *config.AnalysisConfig) *AnalysisService {
	return &AnalysisService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// StartJob submits a new analysis job for an externally staged document
func (s *AnalysisService) StartJob(ctx context.Context, inputURL string, featureTypes []string) (string, error) {
	reqBody := startJobRequest{
		InputURL:     inputURL,
		FeatureTypes: featureTypes,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+"/v1/jobs", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result startJobResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	if resp.StatusCode != http.StatusOK || result.JobID == "" {
		msg := result.Error
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("analysis API error: %s", msg)
	}

	return result.JobID, nil
}

// GetJobStatus queries the current status of a job
func (s *AnalysisService) GetJobStatus(ctx context.Context, jobID string) (*JobStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/jobs/%s", s.config.APIURL, jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)

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
		return nil, fmt.Errorf("analysis API error: %s, body: %s", resp.Status, string(body))
	}

	var result JobStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// GetResultPage fetches one page of results. Pass an empty token for the
// first page; subsequent pages use the token from the previous response.
func (s *AnalysisService) GetResultPage(ctx context.Context, jobID, nextToken string) (*ResultPage, error) {
	u := fmt.Sprintf("%s/v1/jobs/%s/results", s.config.APIURL, jobID)
	if nextToken != "" {
		u += "?next_token=" + url.QueryEscape(nextToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)

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
		return nil, fmt.Errorf("analysis API error: %s, body: %s", resp.Status, string(body))
	}

	var result ResultPage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}
