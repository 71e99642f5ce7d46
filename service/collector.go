package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quimbellmunt/medscan/config"
	"github.com/quimbellmunt/medscan/model"
)

// statusRank orders the monotonic status chain
// SUBMITTED -> IN_PROGRESS -> {SUCCEEDED|FAILED}. Any observed transition
// to a lower rank is a protocol violation.
var statusRank = map[JobStatus]int{
	StatusSubmitted:  0,
	StatusInProgress: 1,
	StatusSucceeded:  2,
	StatusFailed:     2,
}

// JobHandle tracks one submitted job and the last status observed for it.
type JobHandle struct {
	JobID  string
	status JobStatus
}

// Status returns the last status observed for the job.
func (h *JobHandle) Status() JobStatus { return h.status }

// advance records a newly observed status, rejecting transitions that
// leave the monotonic chain.
func (h *JobHandle) advance(next JobStatus) error {
	nextRank, ok := statusRank[next]
	if !ok {
		return &ProtocolError{Reason: fmt.Sprintf("unknown job status %q", string(next))}
	}
	curRank := statusRank[h.status]
	if nextRank < curRank {
		return &ProtocolError{From: h.status, To: next}
	}
	if curRank == 2 && next != h.status {
		return &ProtocolError{From: h.status, To: next}
	}
	h.status = next
	return nil
}

// Collector turns an asynchronous, paginated analysis job into a single
// in-memory ordered result: submit, poll to completion, follow the
// continuation-token chain, aggregate.
type Collector struct {
	api             AnalysisAPI
	pollInterval    time.Duration
	maxWait         time.Duration
	maxPages        int
	maxPollFailures int
	sleep           func(time.Duration)
}

func NewCollector(api AnalysisAPI, cfg config.CollectorConfig) *Collector {
	if cfg.PollIntervalSeconds <= 0 {
		cfg.PollIntervalSeconds = 5
	}
	if cfg.MaxWaitSeconds <= 0 {
		cfg.MaxWaitSeconds = 300
	}
	// A wait shorter than one interval would allow zero polls.
	if cfg.MaxWaitSeconds < cfg.PollIntervalSeconds {
		cfg.MaxWaitSeconds = cfg.PollIntervalSeconds
	}
	return &Collector{
		api:             api,
		pollInterval:    time.Duration(cfg.PollIntervalSeconds) * time.Second,
		maxWait:         time.Duration(cfg.MaxWaitSeconds) * time.Second,
		maxPages:        cfg.MaxPages,
		maxPollFailures: cfg.MaxPollFailures,
		sleep:           time.Sleep,
	}
}

// Submit sends a job request for an externally staged input. Rejections
// surface as *SubmissionError and are never retried here.
func (c *Collector) Submit(ctx context.Context, inputURL string, featureTypes []string) (*JobHandle, error) {
	jobID, err := c.api.StartJob(ctx, inputURL, featureTypes)
	if err != nil {
		return nil, &SubmissionError{Err: err}
	}
	return &JobHandle{JobID: jobID, status: StatusSubmitted}, nil
}

// AwaitCompletion blocks in a sleep-then-poll loop until the job reaches a
// terminal status or the configured wait is exhausted. On FAILED it returns
// *JobFailedError with the service-reported reason; past MaxWait it returns
// *TimeoutError and leaves the remote job running. Transient poll errors
// are tolerated up to MaxPollFailures consecutive failures.
func (c *Collector) AwaitCompletion(ctx context.Context, handle *JobHandle) error {
	maxPolls := int(c.maxWait / c.pollInterval)
	failures := 0

	for poll := 0; poll < maxPolls; poll++ {
		c.sleep(c.pollInterval)
		if err := ctx.Err(); err != nil {
			return err
		}

		status, err := c.api.GetJobStatus(ctx, handle.JobID)
		if err != nil {
			failures++
			if failures > c.maxPollFailures {
				return fmt.Errorf("status poll failed: %w", err)
			}
			continue
		}
		failures = 0

		if err := handle.advance(status.Status); err != nil {
			return err
		}

		switch status.Status {
		case StatusSucceeded:
			return nil
		case StatusFailed:
			return &JobFailedError{Reason: status.Reason}
		}
	}

	return &TimeoutError{Waited: c.maxWait, Polls: maxPolls}
}

// CollectPages fetches result pages strictly in continuation-token order
// and returns them all or nothing. It requires a job that was observed to
// succeed; anything else is *InvalidStateError. A chain longer than
// MaxPages (when set) is treated as a protocol violation.
func (c *Collector) CollectPages(ctx context.Context, handle *JobHandle) ([]ResultPage, error) {
	if handle.status != StatusSucceeded {
		return nil, &InvalidStateError{Status: handle.status}
	}

	var pages []ResultPage
	token := ""
	for {
		page, err := c.api.GetResultPage(ctx, handle.JobID, token)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch result page %d: %w", len(pages), err)
		}
		pages = append(pages, *page)

		if c.maxPages > 0 && len(pages) > c.maxPages {
			return nil, &ProtocolError{Reason: fmt.Sprintf("result chain exceeded %d pages", c.maxPages)}
		}
		if page.NextToken == "" {
			return pages, nil
		}
		token = page.NextToken
	}
}

// AggregateText concatenates the textual content of each result page,
// preserving page boundaries. It is pure: one PageText per ResultPage, in
// arrival order, indexed by poll response rather than physical page.
func AggregateText(pages []ResultPage) []model.PageText {
	out := make([]model.PageText, 0, len(pages))
	for i, page := range pages {
		var sb strings.Builder
		for _, block := range page.Blocks {
			if block.Text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(block.Text)
		}
		out = append(out, model.PageText{Index: i, Text: sb.String()})
	}
	return out
}
