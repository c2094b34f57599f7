package stats

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"

	"modelconsole/internal/common/fsutil"
)

// FileSink keeps records as a JSON array in a single file, trimmed to the
// newest Limit entries. Writes are serialised and replace the file atomically.
type FileSink struct {
	path  string
	limit int
	mu    sync.Mutex
}

// NewFileSink returns a sink writing to path. A non-positive limit means DefaultLimit.
func NewFileSink(path string, limit int) *FileSink {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &FileSink{path: path, limit: limit}
}

// Path returns the backing file.
func (s *FileSink) Path() string { return s.path }

// Record appends r and trims the history.
func (s *FileSink) Record(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.load()
	if err != nil {
		return err
	}
	recs = append(recs, r)
	if len(recs) > s.limit {
		recs = recs[len(recs)-s.limit:]
	}
	return s.save(recs)
}

// Records returns the stored history, oldest first.
func (s *FileSink) Records(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileSink) load() ([]Record, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read stats file %s", s.path)
	}
	if len(b) == 0 {
		return nil, nil
	}
	var recs []Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, errors.Wrapf(err, "decode stats file %s", s.path)
	}
	return recs, nil
}

func (s *FileSink) save(recs []Record) error {
	if recs == nil {
		recs = []Record{}
	}
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode stats")
	}
	return errors.Wrapf(fsutil.WriteFileAtomic(s.path, b, 0o644), "save stats file %s", s.path)
}

// MemorySink stores records in memory for tests.
type MemorySink struct {
	mu   sync.Mutex
	recs []Record
	Err  error
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (m *MemorySink) Record(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.recs = append(m.recs, r)
	return nil
}

func (m *MemorySink) Records(context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.recs))
	copy(out, m.recs)
	return out, nil
}
