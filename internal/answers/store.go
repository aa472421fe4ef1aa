// Package answers persists answers given to application form questions so
// that the same question is answered identically on later runs without a
// call to the generator.
package answers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnsupportedKind is returned when appending a record whose kind cannot be persisted.
var ErrUnsupportedKind = errors.New("widget kind cannot be stored")

// Store is the in-memory view of the answer store. It is loaded once,
// appended to while jobs run, and flushed back to disk.
//
// Flush only ever adds to the file: entries written by other processes and
// entries this process could not parse are kept as they are.
//
// Store is not safe for concurrent use.
type Store struct {
	path    string
	logger  *zap.Logger
	records []schemas.QuestionRecord
	// pending holds the records appended since the last successful flush.
	pending []schemas.QuestionRecord
}

// errMalformed marks a store file whose top level is not a JSON array.
var errMalformed = errors.New("answer store is malformed")

// now is replaced in tests.
var now = time.Now

// Load reads the store at path. A missing, unreadable or malformed file
// yields an empty store; the problem is logged and never returned.
func Load(path string, logger *zap.Logger) *Store {
	s := &Store{path: path, logger: logger.Named("answers")}

	raw, err := readRaw(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info("Answer store not found, starting empty", zap.String("path", path))
		return s
	case errors.Is(err, errMalformed):
		s.logger.Warn("Answer store malformed, starting empty", zap.String("path", path), zap.Error(err))
		return s
	case err != nil:
		s.logger.Warn("Answer store unreadable, starting empty", zap.String("path", path), zap.Error(err))
		return s
	}

	s.records = s.decode(raw)
	s.logger.Info("Loaded answer store", zap.String("path", path), zap.Int("records", len(s.records)))
	return s
}

// readRaw returns the entries of the store file without interpreting them.
func readRaw(path string) ([]jsoniter.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	var raw []jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return raw, nil
}

// decode keeps the entries that are usable for lookups, normalized.
func (s *Store) decode(raw []jsoniter.RawMessage) []schemas.QuestionRecord {
	records := make([]schemas.QuestionRecord, 0, len(raw))
	for _, entry := range raw {
		var r schemas.QuestionRecord
		if err := json.Unmarshal(entry, &r); err != nil {
			s.logger.Debug("Skipping unreadable answer record", zap.Error(err))
			continue
		}
		kind, err := schemas.ParseWidgetKind(string(r.Type))
		if err != nil || !kind.Persisted() || strings.TrimSpace(r.Question) == "" {
			s.logger.Debug("Skipping invalid answer record", zap.String("question", r.Question), zap.String("type", string(r.Type)))
			continue
		}
		records = append(records, schemas.QuestionRecord{
			Question: Normalize(r.Question),
			Type:     kind,
			Answer:   r.Answer,
		})
	}
	return records
}

// NewMemory returns a store that is never written to disk.
func NewMemory(logger *zap.Logger, records ...schemas.QuestionRecord) *Store {
	s := &Store{logger: logger.Named("answers")}
	for _, r := range records {
		_ = s.Append(r.Question, r.Type, r.Answer)
	}
	s.pending = nil
	return s
}

// Normalize collapses runs of whitespace, trims, and lower-cases text.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Find returns the answer of the most recently appended record whose stored
// question is contained in the live question and whose kind matches exactly.
func (s *Store) Find(question string, kind schemas.WidgetKind) (string, bool) {
	live := Normalize(question)
	if live == "" {
		return "", false
	}
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.Type == kind && r.Question != "" && strings.Contains(live, r.Question) {
			return r.Answer, true
		}
	}
	return "", false
}

// Append adds a record. Duplicates are kept; later records shadow earlier ones.
func (s *Store) Append(question string, kind schemas.WidgetKind, answer string) error {
	if !kind.Persisted() {
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	q := Normalize(question)
	if q == "" {
		return fmt.Errorf("cannot store an answer for an empty question")
	}
	r := schemas.QuestionRecord{Question: q, Type: kind, Answer: answer}
	s.records = append(s.records, r)
	s.pending = append(s.pending, r)
	return nil
}

// Merge appends every valid record from other, preserving order, and
// returns how many were added.
func (s *Store) Merge(records []schemas.QuestionRecord) int {
	added := 0
	for _, r := range records {
		if err := s.Append(r.Question, r.Type, r.Answer); err == nil {
			added++
		}
	}
	return added
}

// Records returns a copy of all records in append order.
func (s *Store) Records() []schemas.QuestionRecord {
	out := make([]schemas.QuestionRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Path returns the backing file, empty for memory stores.
func (s *Store) Path() string { return s.path }

// Flush appends the records added since the last flush to the file on disk.
// While an exclusive lock on "<path>.lock" is held, the file is read again,
// the new records are added after whatever it holds now, and the result
// replaces it through a temporary file. A file that cannot be parsed is moved
// aside to "<path>.corrupt-<timestamp>" first. An unreadable file is never
// overwritten.
func (s *Store) Flush() error {
	if s.path == "" || len(s.pending) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create answer store directory: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock answer store: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("Failed to release answer store lock", zap.Error(err))
		}
	}()

	raw, err := readRaw(s.path)
	switch {
	case err == nil, errors.Is(err, os.ErrNotExist):
	case errors.Is(err, errMalformed):
		backup := fmt.Sprintf("%s.corrupt-%s", s.path, now().UTC().Format("20060102T150405Z"))
		if err := os.Rename(s.path, backup); err != nil {
			return fmt.Errorf("failed to move malformed answer store aside: %w", err)
		}
		s.logger.Warn("Moved malformed answer store aside", zap.String("path", s.path), zap.String("backup", backup))
		raw = nil
	default:
		return fmt.Errorf("failed to read answer store before writing: %w", err)
	}

	for _, r := range s.pending {
		entry, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode answer record: %w", err)
		}
		raw = append(raw, entry)
	}

	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode answer store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".answers-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary answer store: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write answer store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync answer store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close answer store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace answer store: %w", err)
	}

	s.pending = nil
	s.records = s.decode(raw)
	s.logger.Debug("Flushed answer store", zap.String("path", s.path), zap.Int("records", len(s.records)))
	return nil
}
