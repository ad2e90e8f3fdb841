package core

// workflow.go models one import as a finite-state machine:
//
//	upload -> validate -> map -> import
//
// Forward moves are single steps. Previous steps back once from any stage
// except upload. Every stage/action pair that is not in the transitions table
// fails with a *TransitionError, so illegal moves cannot happen by accident.
//
// Guards:
//   - load (upload -> validate): at least one parsed row
//   - next (validate -> map): the validator reports no errors for the current
//     rows and mappings
//   - next (map -> import): none
//   - import: success resets the session; failure keeps rows and mappings so
//     the import can be retried

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Stage is the current step of an import session.
type Stage int

const (
	StageUpload Stage = iota
	StageValidate
	StageMap
	StageImport
)

var stageNames = [...]string{"upload", "validate", "map", "import"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText renders the stage by name in JSON and logs.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a stage name produced by MarshalText.
func (s *Stage) UnmarshalText(b []byte) error {
	for i, name := range stageNames {
		if string(b) == name {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", b)
}

// Action is a user-initiated workflow event.
type Action string

const (
	ActionLoad        Action = "load"
	ActionRevalidate  Action = "revalidate"
	ActionEditMapping Action = "edit mapping"
	ActionNext        Action = "next"
	ActionPrevious    Action = "previous"
	ActionImport      Action = "import"
)

// transitions lists every legal action per stage and the stage it leads to.
// An import that fails stays in StageImport; one that succeeds resets.
var transitions = map[Stage]map[Action]Stage{
	StageUpload: {
		ActionLoad: StageValidate,
	},
	StageValidate: {
		ActionRevalidate:  StageValidate,
		ActionEditMapping: StageValidate,
		ActionNext:        StageMap,
		ActionPrevious:    StageUpload,
	},
	StageMap: {
		ActionEditMapping: StageMap,
		ActionNext:        StageImport,
		ActionPrevious:    StageValidate,
	},
	StageImport: {
		ActionImport:   StageUpload,
		ActionPrevious: StageMap,
	},
}

// Allowed reports whether action may be taken from stage.
func Allowed(stage Stage, action Action) bool {
	_, ok := transitions[stage][action]
	return ok
}

// Session is the state of one in-flight import. It is not safe for
// concurrent use; Service serializes access per session.
type Session struct {
	ID       string
	FileName string

	stage    Stage
	headers  []string
	rows     []RawRow
	mappings []ColumnMapping
	errors   []ImportError

	mapper      *Mapper
	validator   *Validator
	transformer *Transformer

	updatedAt time.Time
}

// NewSession creates an empty session in StageUpload.
func NewSession(id string, registry *Registry) *Session {
	return &Session{
		ID:          id,
		stage:       StageUpload,
		mapper:      NewMapper(registry),
		validator:   NewValidator(registry),
		transformer: NewTransformer(registry),
		updatedAt:   time.Now(),
	}
}

// Stage returns the current stage.
func (s *Session) Stage() Stage { return s.stage }

// Headers returns the source headers in file order.
func (s *Session) Headers() []string { return slices.Clone(s.headers) }

// RowCount returns the number of loaded rows.
func (s *Session) RowCount() int { return len(s.rows) }

// Rows returns the loaded rows. Callers must not modify them.
func (s *Session) Rows() []RawRow { return s.rows }

// Mappings returns a copy of the current column mappings.
func (s *Session) Mappings() []ColumnMapping { return slices.Clone(s.mappings) }

// Errors returns a copy of the latest validation errors.
func (s *Session) Errors() []ImportError { return slices.Clone(s.errors) }

// UpdatedAt returns when the session last changed.
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// advance checks action against the transition table and moves to the
// resulting stage.
func (s *Session) advance(action Action) error {
	next, ok := transitions[s.stage][action]
	if !ok {
		return &TransitionError{From: s.stage, Action: string(action)}
	}
	s.stage = next
	s.updatedAt = time.Now()
	return nil
}

func (s *Session) check(action Action) error {
	if !Allowed(s.stage, action) {
		return &TransitionError{From: s.stage, Action: string(action)}
	}
	return nil
}

// Load starts the session from a decoded table: mappings are inferred from
// the headers, the rows are validated, and the session moves to
// StageValidate. On error the session is unchanged.
func (s *Session) Load(fileName string, table *Table) error {
	if err := s.check(ActionLoad); err != nil {
		return err
	}
	if table == nil || len(table.Rows) == 0 {
		return ErrNoRows
	}

	s.FileName = fileName
	s.headers = slices.Clone(table.Headers)
	s.rows = table.Rows
	s.mappings = s.mapper.Infer(s.headers)
	s.errors = s.validator.Validate(s.rows, s.mappings)
	return s.advance(ActionLoad)
}

// Revalidate re-runs the validator against the latest mappings and returns
// the new error list.
func (s *Session) Revalidate() ([]ImportError, error) {
	if err := s.check(ActionRevalidate); err != nil {
		return nil, err
	}
	s.errors = s.validator.Validate(s.rows, s.mappings)
	s.updatedAt = time.Now()
	return s.Errors(), nil
}

// SetMapping retargets one column. The column's Required flag is recomputed
// from the new field. Allowed in StageValidate and StageMap.
func (s *Session) SetMapping(column, target string) error {
	if err := s.check(ActionEditMapping); err != nil {
		return err
	}
	mappings, err := s.mapper.Remap(s.mappings, column, target)
	if err != nil {
		return err
	}
	s.mappings = mappings
	s.updatedAt = time.Now()
	return nil
}

// Next moves one stage forward. Leaving StageValidate re-runs the validator
// and fails with ErrValidationFailed while any error remains.
func (s *Session) Next() error {
	if err := s.check(ActionNext); err != nil {
		return err
	}
	if s.stage == StageValidate {
		s.errors = s.validator.Validate(s.rows, s.mappings)
		if len(s.errors) > 0 {
			s.updatedAt = time.Now()
			return fmt.Errorf("%w: %d errors", ErrValidationFailed, len(s.errors))
		}
	}
	return s.advance(ActionNext)
}

// Previous moves one stage back. Returning to StageUpload discards the loaded
// file; returning to StageValidate re-runs the validator.
func (s *Session) Previous() error {
	if err := s.check(ActionPrevious); err != nil {
		return err
	}
	switch s.stage {
	case StageValidate:
		s.reset()
		return nil
	case StageMap:
		s.errors = s.validator.Validate(s.rows, s.mappings)
	}
	return s.advance(ActionPrevious)
}

// Preview transforms the first n rows (all rows when n <= 0) with the current
// mappings. Nothing is persisted.
func (s *Session) Preview(n int) []DomainRecord {
	rows := s.rows
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	return s.transformer.Transform(rows, s.mappings)
}

// Import hands the transformed rows to creator. On success the session is
// reset to an empty StageUpload and the result is returned. On failure a
// *PersistenceError is returned and the session stays in StageImport with
// its rows and mappings intact.
func (s *Session) Import(ctx context.Context, creator BulkCreator, siteID string) (BulkResult, error) {
	if err := s.check(ActionImport); err != nil {
		return BulkResult{}, err
	}

	records := s.transformer.Transform(s.rows, s.mappings)
	res, err := creator.BulkCreate(ctx, siteID, records)
	s.updatedAt = time.Now()
	if err != nil {
		return res, &PersistenceError{Messages: res.Errors, Err: err}
	}
	if !res.Success {
		return res, &PersistenceError{Messages: res.Errors}
	}

	s.reset()
	return res, nil
}

// Cancel discards everything and returns the session to StageUpload.
func (s *Session) Cancel() {
	s.reset()
}

func (s *Session) reset() {
	s.FileName = ""
	s.stage = StageUpload
	s.headers = nil
	s.rows = nil
	s.mappings = nil
	s.errors = nil
	s.updatedAt = time.Now()
}
