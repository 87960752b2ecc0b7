// Package audit records the helper's own state-changing actions (configuration
// creation, audit request intake) as an append-only journal. The journal is
// deliberately separate from application logs: application logs are ephemeral
// debug output for on-call engineers, while the journal is an immutable record
// of who changed shared configuration and when, consumed by the audit-system
// admins when they reconcile the workbook. Entries can be routed to a local
// JSONL file, an HTTP collector, or both at once via the Sink interface.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

// Actions recorded by this service.
const (
	ActionConfigCreate = "config.create"
	ActionAuditRequest = "audit.request"
)

// Event is one journal entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	// Actor is the authenticated email of the user who performed the action.
	Actor string `json:"actor,omitempty"`
	// ConfigID is the configuration the action targeted.
	ConfigID string `json:"config_id,omitempty"`
	// RequestID is the request identifier for audit.request events.
	RequestID string `json:"request_id,omitempty"`
	// NotifiedVia names the notification channel that delivered the admin
	// email for this action, or is empty when delivery failed everywhere.
	NotifiedVia string                 `json:"notified_via,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Sink is one journal destination.
type Sink interface {
	// Record persists a single event.
	Record(ctx context.Context, ev Event) error
	// Close releases the sink's resources.
	Close() error
}

// Journal fans events out to every configured sink. Sink failures are logged
// and do not fail the action being journalled; losing a journal entry is
// preferable to failing a write the user already saw succeed.
type Journal struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewJournal creates a journal over the given sinks. A journal with no sinks
// is valid and discards every event.
func NewJournal(sinks ...Sink) *Journal {
	return &Journal{sinks: sinks}
}

// Record stamps the event with the current time when unset and hands it to
// every sink.
func (j *Journal) Record(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	for _, sink := range j.sinks {
		if err := sink.Record(ctx, ev); err != nil {
			slog.Error("journal sink failed", "tag", "audit", "action", ev.Action, "error", err)
		}
	}
}

// Close closes all sinks, returning the last error seen.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var lastErr error
	for _, sink := range j.sinks {
		if err := sink.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// FileSink appends events as JSON lines to a local file, rotating when the
// file exceeds a size cap.
type FileSink struct {
	mu         sync.Mutex
	path       string
	maxSizeMB  int
	maxBackups int
	file       *os.File
}

// NewFileSink opens (or creates) the journal file for appending. maxSizeMB of
// zero disables rotation.
func NewFileSink(path string, maxSizeMB, maxBackups int) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	return &FileSink{path: path, maxSizeMB: maxSizeMB, maxBackups: maxBackups, file: file}, nil
}

// Record implements Sink.
func (s *FileSink) Record(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSizeMB > 0 {
		info, err := s.file.Stat()
		if err == nil && info.Size() > int64(s.maxSizeMB)*1024*1024 {
			if err := s.rotate(); err != nil {
				slog.Warn("journal rotation failed", "tag", "audit", "path", s.path, "error", err)
			}
		}
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal journal event: %w", err)
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write journal event: %w", err)
	}
	return nil
}

// rotate shifts existing backups up one slot and reopens a fresh file.
// Caller holds s.mu.
func (s *FileSink) rotate() error {
	if err := s.file.Close(); err != nil {
		return err
	}

	for i := s.maxBackups - 1; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", s.path, i), fmt.Sprintf("%s.%d", s.path, i+1))
	}
	_ = os.Rename(s.path, s.path+".1")
	if s.maxBackups > 0 {
		_ = os.Remove(fmt.Sprintf("%s.%d", s.path, s.maxBackups+1))
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	s.file = file
	return nil
}

// Close implements Sink.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// WebhookSink posts each event as JSON to an HTTP collector endpoint.
type WebhookSink struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookSink creates the sink. timeout of zero means 10s.
func NewWebhookSink(url string, headers map[string]string, timeout time.Duration) *WebhookSink {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}
}

// Record implements Sink.
func (s *WebhookSink) Record(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal journal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create journal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post journal event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("journal collector returned status %d", resp.StatusCode)
	}
	return nil
}

// Close implements Sink.
func (s *WebhookSink) Close() error { return nil }
