package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const leadsCSV = "Email,Phone,Full Name,Company Address - City\n" +
	"ann@example.com,,Ann Lee,CDMX\n" +
	",555-0100,Bob Ray,\n"

type stubHistory struct {
	siteID string
	limit  int
}

func (h *stubHistory) RecentImports(_ context.Context, siteID string, limit int) ([]ImportRun, error) {
	h.siteID, h.limit = siteID, limit
	return []ImportRun{{ID: "r1", SiteID: siteID, Status: RunSucceeded}}, nil
}

func newTestService(creator BulkCreator) *Service {
	return NewService(DefaultRegistry(), creator, nil, ServiceConfig{DefaultSite: "default-site", PreviewRows: 1})
}

func TestService_EndToEnd(t *testing.T) {
	creator := &recordingCreator{result: BulkResult{Success: true}}
	svc := newTestService(creator)
	ctx := context.Background()

	view, err := svc.StartImport(ctx, "leads.csv", strings.NewReader(leadsCSV), "")
	require.NoError(t, err)
	assert.Equal(t, StageValidate, view.Stage)
	assert.Equal(t, 2, view.RowCount)
	assert.Len(t, view.SampleRows, 1)
	assert.Empty(t, view.Errors)
	assert.Equal(t, 1, svc.SessionCount())

	view, err = svc.Next(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, StageMap, view.Stage)

	preview, err := svc.Preview(view.ID, 0)
	require.NoError(t, err)
	require.Len(t, preview, 2)
	assert.Equal(t, "CDMX", preview[0].Company.Address["city"])

	_, err = svc.Next(ctx, view.ID)
	require.NoError(t, err)

	res, err := svc.Import(ctx, view.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "default-site", creator.siteID)
	assert.Equal(t, 0, svc.SessionCount(), "completed session closed")

	_, err = svc.Session(view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_StartImportParseFailure(t *testing.T) {
	svc := newTestService(&recordingCreator{})

	_, err := svc.StartImport(context.Background(), "leads.txt", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = svc.StartImport(context.Background(), "leads.csv", strings.NewReader("Email\n"), "")
	assert.ErrorIs(t, err, ErrEmptyFile)

	assert.Equal(t, 0, svc.SessionCount())
}

func TestService_ValidationAndMapping(t *testing.T) {
	svc := newTestService(&recordingCreator{})
	ctx := context.Background()

	csv := "Email,Stage\nann@example.com,unknown\n"
	view, err := svc.StartImport(ctx, "leads.csv", strings.NewReader(csv), FormatCSV)
	require.NoError(t, err)
	assert.Empty(t, view.Errors)

	view, err = svc.SetMapping(ctx, view.ID, "Stage", "status")
	require.NoError(t, err)
	assert.True(t, hasTarget(view.Mappings, "Stage", "status"))

	view, err = svc.Revalidate(ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, view.Errors, 1)
	assert.Contains(t, view.Errors[0].Message, "Allowed values: new, contacted")

	view, err = svc.Next(ctx, view.ID)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, StageValidate, view.Stage)

	_, err = svc.SetMapping(ctx, view.ID, "Stage", "fax")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func hasTarget(mappings []ColumnMapping, column, target string) bool {
	for _, m := range mappings {
		if m.SourceColumn == column {
			return m.TargetField == target
		}
	}
	return false
}

func TestService_ImportFailureKeepsSession(t *testing.T) {
	creator := &recordingCreator{err: errors.New("dial tcp: connection refused")}
	svc := newTestService(creator)
	ctx := context.Background()

	view, err := svc.StartImport(ctx, "leads.csv", strings.NewReader(leadsCSV), "")
	require.NoError(t, err)
	_, err = svc.Next(ctx, view.ID)
	require.NoError(t, err)
	_, err = svc.Next(ctx, view.ID)
	require.NoError(t, err)

	_, err = svc.Import(ctx, view.ID, "site-9")
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "DB004", MapError(err).Code)

	view, err = svc.Session(view.ID)
	require.NoError(t, err)
	assert.Equal(t, StageImport, view.Stage)
	assert.Equal(t, 2, view.RowCount)
	assert.Equal(t, 0, svc.Limiter().ActiveCount())
}

func TestService_ImportBusy(t *testing.T) {
	svc := NewService(DefaultRegistry(), &recordingCreator{result: BulkResult{Success: true}}, nil,
		ServiceConfig{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	ctx := context.Background()

	view, err := svc.StartImport(ctx, "leads.csv", strings.NewReader(leadsCSV), "")
	require.NoError(t, err)
	_, _ = svc.Next(ctx, view.ID)
	_, _ = svc.Next(ctx, view.ID)

	require.NoError(t, svc.Limiter().Acquire(ctx))
	_, err = svc.Import(ctx, view.ID, "s")
	assert.ErrorIs(t, err, ErrTooManyImports)
	svc.Limiter().Release()

	_, err = svc.Import(ctx, view.ID, "s")
	assert.NoError(t, err)
}

func TestService_ConcurrentSessionsAreIndependent(t *testing.T) {
	var created atomic.Int64
	svc := newTestService(BulkCreatorFunc(func(_ context.Context, _ string, records []DomainRecord) (BulkResult, error) {
		created.Add(int64(len(records)))
		return BulkResult{Success: true, Count: len(records)}, nil
	}))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view, err := svc.StartImport(ctx, "leads.csv", strings.NewReader(leadsCSV), "")
			if !assert.NoError(t, err) {
				return
			}
			_, err = svc.Next(ctx, view.ID)
			assert.NoError(t, err)
			_, err = svc.Next(ctx, view.ID)
			assert.NoError(t, err)
			_, err = svc.Import(ctx, view.ID, "s")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, svc.SessionCount())
	assert.Equal(t, int64(16), created.Load())
}

func TestService_Cancel(t *testing.T) {
	svc := newTestService(&recordingCreator{})
	ctx := context.Background()

	view, err := svc.StartImport(ctx, "leads.csv", strings.NewReader(leadsCSV), "")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, view.ID))
	assert.ErrorIs(t, svc.Cancel(ctx, view.ID), ErrSessionNotFound)
	assert.Equal(t, 0, svc.SessionCount())
}

func TestService_SweepIdle(t *testing.T) {
	svc := newTestService(&recordingCreator{})
	ctx := context.Background()

	_, err := svc.StartImport(ctx, "a.csv", strings.NewReader(leadsCSV), "")
	require.NoError(t, err)
	_, err = svc.StartImport(ctx, "b.csv", strings.NewReader(leadsCSV), "")
	require.NoError(t, err)

	assert.Equal(t, 0, svc.SweepIdle(time.Now().Add(-time.Hour)))
	assert.Equal(t, 2, svc.SweepIdle(time.Now().Add(time.Second)))
	assert.Equal(t, 0, svc.SessionCount())
}

func TestService_JanitorStopsWithContext(t *testing.T) {
	svc := NewService(DefaultRegistry(), &recordingCreator{}, nil, ServiceConfig{SessionTTL: time.Millisecond})
	_, err := svc.StartImport(context.Background(), "a.csv", strings.NewReader(leadsCSV), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.StartSessionJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return svc.SessionCount() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestService_History(t *testing.T) {
	svc := newTestService(&recordingCreator{})
	_, err := svc.History(context.Background(), "s", 10)
	assert.ErrorIs(t, err, ErrHistoryUnavailable)

	h := &stubHistory{}
	svc = NewService(DefaultRegistry(), &recordingCreator{}, h, ServiceConfig{})
	runs, err := svc.History(context.Background(), "site-1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "site-1", h.siteID)
	assert.Equal(t, 20, h.limit)
}
