package llmclient

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
)

// CallRecord is one line of the call log.
type CallRecord struct {
	Time         time.Time `json:"time"`
	Tier         string    `json:"tier"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	UserPrompt   string    `json:"user_prompt"`
	Reply        string    `json:"reply,omitempty"`
	Error        string    `json:"error,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
}

// CallLog appends every generation to a JSON lines file.
type CallLog struct {
	mu  sync.Mutex
	w   io.Writer
	c   io.Closer
	now func() time.Time
}

// OpenCallLog opens path for appending, creating parent directories.
func OpenCallLog(path string) (*CallLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create call log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open call log: %w", err)
	}
	return &CallLog{w: f, c: f, now: time.Now}, nil
}

// NewCallLog writes records to w.
func NewCallLog(w io.Writer) *CallLog {
	return &CallLog{w: w, now: time.Now}
}

// Wrap returns a client that records each call made through next.
func (l *CallLog) Wrap(next schemas.LLMClient) schemas.LLMClient {
	return &loggedClient{next: next, log: l}
}

func (l *CallLog) write(rec CallRecord) error {
	line, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(rec)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(append(line, '\n'))
	return err
}

// Close closes the underlying file, if the log owns one.
func (l *CallLog) Close() error {
	if l.c == nil {
		return nil
	}
	return l.c.Close()
}

type loggedClient struct {
	next schemas.LLMClient
	log  *CallLog
}

func (c *loggedClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	start := c.log.now()
	reply, err := c.next.Generate(ctx, req)

	rec := CallRecord{
		Time:         start.UTC(),
		Tier:         string(req.Tier),
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		Reply:        reply,
		DurationMS:   c.log.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	// A failed log write never fails the generation.
	_ = c.log.write(rec)
	return reply, err
}

func (c *loggedClient) Close() error {
	return c.next.Close()
}
