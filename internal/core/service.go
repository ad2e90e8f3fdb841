package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultImportTimeout is the maximum duration of one bulk-create call.
const DefaultImportTimeout = 10 * time.Minute

// DefaultPreviewRows is how many rows a session view samples.
const DefaultPreviewRows = 5

// ImportHistory lists past import attempts.
type ImportHistory interface {
	RecentImports(ctx context.Context, siteID string, limit int) ([]ImportRun, error)
}

// ServiceConfig tunes a Service. Zero values fall back to defaults.
type ServiceConfig struct {
	ImportTimeout time.Duration
	SessionTTL    time.Duration
	MaxConcurrent int
	MaxWait       time.Duration
	DefaultSite   string
	PreviewRows   int
}

// Service owns the in-flight import sessions and runs them against a
// BulkCreator. Sessions are independent; each is guarded by its own lock.
type Service struct {
	registry *Registry
	creator  BulkCreator
	history  ImportHistory
	limiter  *ImportLimiter
	cfg      ServiceConfig

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

// NewService creates a Service. history may be nil.
func NewService(registry *Registry, creator BulkCreator, history ImportHistory, cfg ServiceConfig) *Service {
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = DefaultImportTimeout
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}
	return &Service{
		registry: registry,
		creator:  creator,
		history:  history,
		limiter:  NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		cfg:      cfg,
		sessions: make(map[string]*sessionEntry),
	}
}

// Fields returns the field registry in order.
func (s *Service) Fields() []FieldDescriptor {
	return s.registry.All()
}

// Limiter exposes the import limiter for health reporting and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SessionView is a read-only snapshot of a session.
type SessionView struct {
	ID         string          `json:"id"`
	Stage      Stage           `json:"stage"`
	FileName   string          `json:"fileName,omitempty"`
	Headers    []string        `json:"headers"`
	RowCount   int             `json:"rowCount"`
	Mappings   []ColumnMapping `json:"mappings"`
	Errors     []ImportError   `json:"errors"`
	SampleRows []RawRow        `json:"sampleRows,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (s *Service) view(sess *Session) SessionView {
	rows := sess.Rows()
	if len(rows) > s.cfg.PreviewRows {
		rows = rows[:s.cfg.PreviewRows]
	}
	return SessionView{
		ID:         sess.ID,
		Stage:      sess.Stage(),
		FileName:   sess.FileName,
		Headers:    sess.Headers(),
		RowCount:   sess.RowCount(),
		Mappings:   sess.Mappings(),
		Errors:     sess.Errors(),
		SampleRows: rows,
		UpdatedAt:  sess.UpdatedAt(),
	}
}

// StartImport decodes a file and opens a session for it in StageValidate.
// An empty format is detected from fileName. Parse failures create no session.
func (s *Service) StartImport(ctx context.Context, fileName string, r io.Reader, format Format) (SessionView, error) {
	if format == "" {
		f, err := DetectFormat(fileName)
		if err != nil {
			return SessionView{}, err
		}
		format = f
	}

	table, err := Decode(r, format)
	if err != nil {
		return SessionView{}, err
	}

	sess := NewSession(uuid.NewString(), s.registry)
	if err := sess.Load(fileName, table); err != nil {
		return SessionView{}, err
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &sessionEntry{session: sess}
	s.mu.Unlock()

	errs := sess.Errors()
	slog.InfoContext(ctx, "import session started",
		"session_id", sess.ID,
		"file", fileName,
		"format", format,
		"rows", sess.RowCount(),
		"columns", len(table.Headers),
		"errors", len(errs),
	)
	return s.view(sess), nil
}

func (s *Service) entry(id string) (*sessionEntry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

// withSession runs fn with exclusive access to a session and returns the
// session's state afterwards, also when fn fails.
func (s *Service) withSession(id string, fn func(*Session) error) (SessionView, error) {
	e, err := s.entry(id)
	if err != nil {
		return SessionView{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	err = fn(e.session)
	return s.view(e.session), err
}

// Session returns the current state of a session.
func (s *Service) Session(id string) (SessionView, error) {
	return s.withSession(id, func(*Session) error { return nil })
}

// SetMapping retargets one column of a session.
func (s *Service) SetMapping(ctx context.Context, id, column, target string) (SessionView, error) {
	v, err := s.withSession(id, func(sess *Session) error {
		return sess.SetMapping(column, target)
	})
	if err == nil {
		slog.DebugContext(ctx, "mapping changed", "session_id", id, "column", column, "target", target)
	}
	return v, err
}

// Revalidate re-runs validation for a session.
func (s *Service) Revalidate(ctx context.Context, id string) (SessionView, error) {
	v, err := s.withSession(id, func(sess *Session) error {
		_, err := sess.Revalidate()
		return err
	})
	if err == nil {
		slog.InfoContext(ctx, "session revalidated", "session_id", id, "errors", len(v.Errors))
	}
	return v, err
}

// Next advances a session one stage.
func (s *Service) Next(ctx context.Context, id string) (SessionView, error) {
	v, err := s.withSession(id, func(sess *Session) error { return sess.Next() })
	s.logTransition(ctx, "next", v, err)
	return v, err
}

// Previous moves a session back one stage.
func (s *Service) Previous(ctx context.Context, id string) (SessionView, error) {
	v, err := s.withSession(id, func(sess *Session) error { return sess.Previous() })
	s.logTransition(ctx, "previous", v, err)
	return v, err
}

func (s *Service) logTransition(ctx context.Context, action string, v SessionView, err error) {
	if err != nil {
		slog.InfoContext(ctx, "transition rejected", "session_id", v.ID, "action", action, "stage", v.Stage, "error", err)
		return
	}
	slog.InfoContext(ctx, "stage changed", "session_id", v.ID, "action", action, "stage", v.Stage)
}

// Preview returns the first n transformed records of a session.
func (s *Service) Preview(id string, n int) ([]DomainRecord, error) {
	var records []DomainRecord
	_, err := s.withSession(id, func(sess *Session) error {
		records = sess.Preview(n)
		return nil
	})
	return records, err
}

// Import runs the bulk-create step for a session in StageImport. An empty
// siteID falls back to the configured default site. On success the session
// is closed; on failure it stays open for a retry.
func (s *Service) Import(ctx context.Context, id, siteID string) (BulkResult, error) {
	if siteID == "" {
		siteID = s.cfg.DefaultSite
	}

	e, err := s.entry(id)
	if err != nil {
		return BulkResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	sess := e.session
	if err := sess.check(ActionImport); err != nil {
		return BulkResult{}, err
	}

	start := time.Now()
	rows, fileName := sess.RowCount(), sess.FileName

	var res BulkResult
	err = s.limiter.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ImportTimeout)
		defer cancel()

		ctx = ContextWithFileName(ctx, fileName)
		var err error
		res, err = sess.Import(ctx, s.creator, siteID)
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "import failed",
			"session_id", id,
			"site", siteID,
			"rows", rows,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return res, err
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	slog.InfoContext(ctx, "import completed",
		"session_id", id,
		"site", siteID,
		"file", fileName,
		"count", res.Count,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Cancel discards a session.
func (s *Service) Cancel(ctx context.Context, id string) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.session.Cancel()
	e.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	slog.InfoContext(ctx, "import session cancelled", "session_id", id)
	return nil
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ErrHistoryUnavailable is returned when no import history is configured.
var ErrHistoryUnavailable = errors.New("import history unavailable")

// History lists recent import runs for a site (all sites when empty).
func (s *Service) History(ctx context.Context, siteID string, limit int) ([]ImportRun, error) {
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	return s.history.RecentImports(ctx, siteID, limit)
}
