package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quimbellmunt/medscan/config"
)

func TestNewAnalysisService(t *testing.T) {
	cfg := &config.AnalysisConfig{
		APIURL:   "https://analysis.test",
		APIToken: "test-token",
	}

	svc := NewAnalysisService(cfg)
	if svc == nil {
		t.Fatal("Expected non-nil service")
	}
	if svc.config != cfg {
		t.Error("Expected config to be set")
	}
	if svc.httpClient == nil {
		t.Error("Expected httpClient to be set")
	}
}

func TestAnalysisServiceStartJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/jobs" {
			t.Errorf("Expected /v1/jobs, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Error("Expected Authorization header")
		}

		var reqBody startJobRequest
		json.NewDecoder(r.Body).Decode(&reqBody)
		if reqBody.InputURL != "http://storage.test/doc.pdf" {
			t.Errorf("Unexpected input URL '%s'", reqBody.InputURL)
		}
		if len(reqBody.FeatureTypes) != 2 || reqBody.FeatureTypes[1] != "TABLES" {
			t.Errorf("Unexpected feature types %v", reqBody.FeatureTypes)
		}

		json.NewEncoder(w).Encode(startJobResponse{JobID: "job-123"})
	}))
	defer server.Close()

	cfg := &config.AnalysisConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
	}

	svc := NewAnalysisService(cfg)
	jobID, err := svc.StartJob(context.Background(), "http://storage.test/doc.pdf", []string{"TEXT", "TABLES"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if jobID != "job-123" {
		t.Errorf("Expected job ID 'job-123', got '%s'", jobID)
	}
}

func TestAnalysisServiceStartJobRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(startJobResponse{Error: "unsupported document format"})
	}))
	defer server.Close()

	cfg := &config.AnalysisConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
	}

	svc := NewAnalysisService(cfg)
	_, err := svc.StartJob(context.Background(), "http://storage.test/doc.xyz", nil)
	if err == nil {
		t.Error("Expected error for rejected submission")
	}
}

func TestAnalysisServiceGetJobStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/v1/jobs/job-123" {
			t.Errorf("Expected /v1/jobs/job-123, got %s", r.URL.Path)
		}

		json.NewEncoder(w).Encode(JobStatusResponse{
			JobID:  "job-123",
			Status: StatusInProgress,
		})
	}))
	defer server.Close()

	cfg := &config.AnalysisConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
	}

	svc := NewAnalysisService(cfg)
	status, err := svc.GetJobStatus(context.Background(), "job-123")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if status.Status != StatusInProgress {
		t.Errorf("Expected IN_PROGRESS, got %s", status.Status)
	}
}

func TestAnalysisServiceGetJobStatusFailedReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(JobStatusResponse{
			JobID:  "job-123",
			Status: StatusFailed,
			Reason: "INVALID_DOCUMENT",
		})
	}))
	defer server.Close()

	cfg := &config.AnalysisConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
	}

	svc := NewAnalysisService(cfg)
	status, err := svc.GetJobStatus(context.Background(), "job-123")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if status.Status != StatusFailed || status.Reason != "INVALID_DOCUMENT" {
		t.Errorf("Unexpected status: %+v", status)
	}
}

func TestAnalysisServiceGetResultPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/jobs/job-123/results" {
			t.Errorf("Expected /v1/jobs/job-123/results, got %s", r.URL.Path)
		}

		token := r.URL.Query().Get("next_token")
		if token == "" {
			json.NewEncoder(w).Encode(ResultPage{
				Blocks:    []Block{{Page: 1, Type: "LINE", Text: "first"}},
				NextToken: "t1",
			})
			return
		}
		if token != "t1" {
			t.Errorf("Unexpected token '%s'", token)
		}
		json.NewEncoder(w).Encode(ResultPage{
			Blocks: []Block{{Page: 1, Type: "LINE", Text: "second"}},
		})
	}))
	defer server.Close()

	cfg := &config.AnalysisConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
	}

	svc := NewAnalysisService(cfg)

	page, err := svc.GetResultPage(context.Background(), "job-123", "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if page.NextToken != "t1" {
		t.Errorf("Expected next token 't1', got '%s'", page.NextToken)
	}

	page, err = svc.GetResultPage(context.Background(), "job-123", page.NextToken)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if page.NextToken != "" {
		t.Errorf("Expected no next token, got '%s'", page.NextToken)
	}
	if page.Blocks[0].Text != "second" {
		t.Errorf("Unexpected block text '%s'", page.Blocks[0].Text)
	}
}

func TestAnalysisServiceNetworkError(t *testing.T) {
	cfg := &config.AnalysisConfig{
		APIURL:   "http://invalid-host-that-does-not-exist:9999",
		APIToken: "test-token",
	}

	svc := NewAnalysisService(cfg)

	if _, err := svc.StartJob(context.Background(), "http://example.com/doc.pdf", nil); err == nil {
		t.Error("Expected error for network failure on StartJob")
	}
	if _, err := svc.GetJobStatus(context.Background(), "job-123"); err == nil {
		t.Error("Expected error for network failure on GetJobStatus")
	}
	if _, err := svc.GetResultPage(context.Background(), "job-123", ""); err == nil {
		t.Error("Expected error for network failure on GetResultPage")
	}
}

func TestAnalysisServiceInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	cfg := &config.AnalysisConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
	}

	svc := NewAnalysisService(cfg)

	if _, err := svc.StartJob(context.Background(), "http://example.com/doc.pdf", nil); err == nil {
		t.Error("Expected error for invalid JSON on StartJob")
	}
	if _, err := svc.GetJobStatus(context.Background(), "job-123"); err == nil {
		t.Error("Expected error for invalid JSON on GetJobStatus")
	}
	if _, err := svc.GetResultPage(context.Background(), "job-123", ""); err == nil {
		t.Error("Expected error for invalid JSON on GetResultPage")
	}
}
