package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCreator is a BulkCreator that remembers its last call.
type recordingCreator struct {
	calls   int
	siteID  string
	records []DomainRecord
	result  BulkResult
	err     error
}

func (c *recordingCreator) BulkCreate(_ context.Context, siteID string, records []DomainRecord) (BulkResult, error) {
	c.calls++
	c.siteID = siteID
	c.records = records
	if c.err != nil || !c.result.Success {
		return c.result, c.err
	}
	return BulkResult{Success: true, Count: len(records)}, nil
}

func validTable() *Table {
	return &Table{
		Headers: []string{"Email", "Phone", "Name", "Last Name"},
		Rows: []RawRow{
			{"Email": "jane@example.com", "Phone": "", "Name": "Jane", "Last Name": "Doe"},
			{"Email": "", "Phone": "555-0100", "Name": "Bob", "Last Name": ""},
		},
	}
}

func loadedSession(t *testing.T, table *Table) *Session {
	t.Helper()
	s := NewSession("s1", DefaultRegistry())
	require.NoError(t, s.Load("leads.csv", table))
	return s
}

func TestSession_LoadInfersAndValidates(t *testing.T) {
	s := loadedSession(t, validTable())

	assert.Equal(t, StageValidate, s.Stage())
	assert.Equal(t, "leads.csv", s.FileName)
	assert.Equal(t, 2, s.RowCount())
	assert.Equal(t, map[string]string{
		"Email":     "email",
		"Phone":     "phone",
		"Name":      "name",
		"Last Name": SkipField,
	}, targets(s.Mappings()))
	assert.Empty(t, s.Errors())
}

func TestSession_LoadRequiresRows(t *testing.T) {
	s := NewSession("s1", DefaultRegistry())

	err := s.Load("empty.csv", &Table{Headers: []string{"Email"}})
	assert.ErrorIs(t, err, ErrNoRows)
	assert.Equal(t, StageUpload, s.Stage())

	assert.ErrorIs(t, s.Load("nil.csv", nil), ErrNoRows)
}

func TestSession_NextBlockedByErrors(t *testing.T) {
	table := validTable()
	table.Rows = append(table.Rows, RawRow{"Email": "", "Phone": "", "Name": "Nobody"})
	s := loadedSession(t, table)

	require.Len(t, s.Errors(), 1)
	err := s.Next()
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, StageValidate, s.Stage())

	// Using Name as the phone column satisfies the contact rule for every row.
	require.NoError(t, s.SetMapping("Phone", SkipField))
	require.NoError(t, s.SetMapping("Name", "phone"))
	errs, err := s.Revalidate()
	require.NoError(t, err)
	assert.Empty(t, errs)

	require.NoError(t, s.Next())
	assert.Equal(t, StageMap, s.Stage())
}

func TestSession_FullRunImportsAndResets(t *testing.T) {
	s := loadedSession(t, validTable())
	creator := &recordingCreator{result: BulkResult{Success: true}}

	require.NoError(t, s.Next())
	require.NoError(t, s.Next())
	require.Equal(t, StageImport, s.Stage())

	res, err := s.Import(context.Background(), creator, "site-1")
	require.NoError(t, err)

	assert.Equal(t, BulkResult{Success: true, Count: 2}, res)
	assert.Equal(t, "site-1", creator.siteID)
	require.Len(t, creator.records, 2)
	assert.Equal(t, "Jane Doe", creator.records[0].Get("name"))
	assert.Equal(t, "555-0100", creator.records[1].Get("phone"))

	assert.Equal(t, StageUpload, s.Stage())
	assert.Zero(t, s.RowCount())
	assert.Empty(t, s.Mappings())
}

func TestSession_ImportFailureKeepsData(t *testing.T) {
	tests := []struct {
		name    string
		creator *recordingCreator
	}{
		{"collaborator error", &recordingCreator{err: errors.New("connection refused"), result: BulkResult{Errors: []string{"db down"}}}},
		{"success false", &recordingCreator{result: BulkResult{Success: false, Errors: []string{"quota exceeded"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loadedSession(t, validTable())
			require.NoError(t, s.Next())
			require.NoError(t, s.Next())
			mappings := s.Mappings()

			_, err := s.Import(context.Background(), tt.creator, "site-1")

			var pe *PersistenceError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.creator.result.Errors, pe.Messages)
			assert.Equal(t, StageImport, s.Stage())
			assert.Equal(t, 2, s.RowCount())
			assert.Equal(t, mappings, s.Mappings())

			// Retry succeeds without re-uploading.
			retry := &recordingCreator{result: BulkResult{Success: true}}
			_, err = s.Import(context.Background(), retry, "site-1")
			require.NoError(t, err)
			assert.Len(t, retry.records, 2)
		})
	}
}

func TestSession_Previous(t *testing.T) {
	s := loadedSession(t, validTable())
	require.NoError(t, s.Next())
	require.NoError(t, s.Next())

	require.NoError(t, s.Previous())
	assert.Equal(t, StageMap, s.Stage())

	// Breaking the mapping in map stage shows up again on the way back.
	require.NoError(t, s.SetMapping("Email", SkipField))
	require.NoError(t, s.SetMapping("Phone", SkipField))
	require.NoError(t, s.Previous())
	assert.Equal(t, StageValidate, s.Stage())
	assert.Len(t, s.Errors(), 2)

	require.NoError(t, s.Previous())
	assert.Equal(t, StageUpload, s.Stage())
	assert.Zero(t, s.RowCount())

	var te *TransitionError
	require.ErrorAs(t, s.Previous(), &te)
	assert.Equal(t, StageUpload, te.From)
}

func TestSession_IllegalTransitions(t *testing.T) {
	s := NewSession("s1", DefaultRegistry())

	assert.ErrorIs(t, s.Next(), ErrInvalidTransition)
	assert.ErrorIs(t, s.SetMapping("Email", "email"), ErrInvalidTransition)
	_, err := s.Revalidate()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.Import(context.Background(), &recordingCreator{}, "x")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	s = loadedSession(t, validTable())
	assert.ErrorIs(t, s.Load("again.csv", validTable()), ErrInvalidTransition)
	_, err = s.Import(context.Background(), &recordingCreator{}, "x")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, s.Next())
	_, err = s.Revalidate()
	assert.ErrorIs(t, err, ErrInvalidTransition, "revalidate only in validate stage")

	require.NoError(t, s.Next())
	assert.ErrorIs(t, s.Next(), ErrInvalidTransition, "no forward move past import")
	assert.ErrorIs(t, s.SetMapping("Email", "email"), ErrInvalidTransition)
}

func TestSession_Cancel(t *testing.T) {
	s := loadedSession(t, validTable())
	require.NoError(t, s.Next())

	s.Cancel()

	assert.Equal(t, StageUpload, s.Stage())
	assert.Zero(t, s.RowCount())
	assert.Empty(t, s.Headers())
	assert.Empty(t, s.Errors())
	require.NoError(t, s.Load("again.csv", validTable()))
}

func TestSession_Preview(t *testing.T) {
	s := loadedSession(t, validTable())

	assert.Len(t, s.Preview(1), 1)
	assert.Len(t, s.Preview(0), 2)
	assert.Len(t, s.Preview(10), 2)
	assert.Equal(t, "Jane Doe", s.Preview(1)[0].Get("name"))
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, Allowed(StageUpload, ActionLoad))
	assert.False(t, Allowed(StageUpload, ActionPrevious))
	assert.False(t, Allowed(StageValidate, ActionImport))
	assert.True(t, Allowed(StageMap, ActionEditMapping))
	assert.False(t, Allowed(StageImport, ActionNext))

	// Forward moves are single steps.
	for stage, actions := range transitions {
		if next, ok := actions[ActionNext]; ok {
			assert.Equal(t, stage+1, next)
		}
		if prev, ok := actions[ActionPrevious]; ok {
			assert.Equal(t, stage-1, prev)
		}
	}
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "upload", StageUpload.String())
	assert.Equal(t, "import", StageImport.String())
	assert.Equal(t, "stage(9)", Stage(9).String())

	b, err := StageMap.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "map", string(b))
}
