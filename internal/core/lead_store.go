package core

// lead_store.go is the Postgres BulkCreator.
//
// Each BulkCreate call runs in one transaction: an import_runs row is
// inserted, then the leads are streamed with the COPY protocol in chunks of
// batchSize. Any failure rolls the whole import back and is recorded as a
// failed run outside the transaction, so history shows every attempt.
//
// Well-known top-level fields have their own columns; address, company and
// social_networks are stored as jsonb, and any other top-level field goes to
// the attributes jsonb column.

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultBatchSize is the number of leads sent per COPY round trip.
const DefaultBatchSize = 1000

const schemaSQL = `
CREATE TABLE IF NOT EXISTS import_runs (
	id           uuid PRIMARY KEY,
	site_id      text NOT NULL,
	file_name    text,
	record_count integer NOT NULL DEFAULT 0,
	status       text NOT NULL,
	error        text,
	client_ip    text,
	created_at   timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS import_runs_site_created_idx
	ON import_runs (site_id, created_at DESC);

CREATE TABLE IF NOT EXISTS leads (
	id              uuid PRIMARY KEY,
	site_id         text NOT NULL,
	import_run_id   uuid REFERENCES import_runs (id),
	name            text,
	email           text,
	phone           text,
	status          text NOT NULL DEFAULT 'new',
	source          text,
	job_title       text,
	notes           text,
	address         jsonb,
	company         jsonb,
	social_networks jsonb,
	attributes      jsonb,
	created_at      timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS leads_site_idx ON leads (site_id);
`

// leadColumns is the COPY column order; leadRow must match it.
var leadColumns = []string{
	"id", "site_id", "import_run_id",
	"name", "email", "phone", "status", "source", "job_title", "notes",
	"address", "company", "social_networks", "attributes",
}

// columnFields are the top-level fields with a dedicated column, in
// leadColumns order.
var columnFields = []string{
	FieldKeyName, FieldKeyEmail, FieldKeyPhone, FieldKeyStatus, "source", "job_title", "notes",
}

// LeadStore persists leads and import history in Postgres.
type LeadStore struct {
	pool      *pgxpool.Pool
	batchSize int
}

// NewLeadStore creates a store. A non-positive batchSize uses DefaultBatchSize.
func NewLeadStore(pool *pgxpool.Pool, batchSize int) *LeadStore {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &LeadStore{pool: pool, batchSize: batchSize}
}

// EnsureSchema creates the leads and import_runs tables if missing.
func (s *LeadStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// BulkCreate inserts all records for siteID atomically.
func (s *LeadStore) BulkCreate(ctx context.Context, siteID string, records []DomainRecord) (BulkResult, error) {
	runID := uuid.New()
	fileName := FileNameFromContext(ctx)
	clientIP := IPAddressFromContext(ctx)

	count, err := s.insert(ctx, runID, siteID, fileName, clientIP, records)
	if err != nil {
		msg := MapError(err).Message
		s.recordFailure(ctx, runID, siteID, fileName, clientIP, len(records), err)
		return BulkResult{Success: false, Errors: []string{msg}}, err
	}
	return BulkResult{Success: true, Count: count}, nil
}

func (s *LeadStore) insert(ctx context.Context, runID uuid.UUID, siteID, fileName, clientIP string, records []DomainRecord) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	run := ImportRun{SiteID: siteID, FileName: fileName, RecordCount: len(records), Status: RunSucceeded}
	if err := insertRun(ctx, tx, runID, run, clientIP); err != nil {
		return 0, err
	}

	total := 0
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))

		rows := make([][]any, 0, end-start)
		for _, rec := range records[start:end] {
			row, err := leadRow(rec, siteID, runID)
			if err != nil {
				return 0, fmt.Errorf("record %d: %w", start+len(rows)+1, err)
			}
			rows = append(rows, row)
		}

		n, err := tx.CopyFrom(ctx, pgx.Identifier{"leads"}, leadColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return 0, fmt.Errorf("copy leads %d-%d: %w", start+1, end, err)
		}
		total += int(n)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

// recordFailure writes a failed import run. Errors are logged, not returned,
// so the original failure reaches the caller.
func (s *LeadStore) recordFailure(ctx context.Context, runID uuid.UUID, siteID, fileName, clientIP string, count int, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	run := ImportRun{SiteID: siteID, FileName: fileName, RecordCount: count, Status: RunFailed, Error: cause.Error()}
	if err := insertRun(ctx, s.pool, runID, run, clientIP); err != nil {
		slog.Error("record failed import run", "run_id", runID, "error", err)
	}
}

// insertRun writes one import_runs row through a pool or a transaction.
func insertRun(ctx context.Context, db DBTX, runID uuid.UUID, run ImportRun, clientIP string) error {
	_, err := db.Exec(ctx,
		`INSERT INTO import_runs (id, site_id, file_name, record_count, status, error, client_ip)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ToPgUUID(runID), run.SiteID, ToPgText(run.FileName), run.RecordCount, string(run.Status), ToPgText(run.Error), ToPgText(clientIP),
	)
	if err != nil {
		return fmt.Errorf("insert import run: %w", err)
	}
	return nil
}

// leadRow converts a record to a COPY row in leadColumns order.
func leadRow(rec DomainRecord, siteID string, runID uuid.UUID) ([]any, error) {
	row := make([]any, 0, len(leadColumns))
	row = append(row, ToPgUUID(uuid.New()), siteID, ToPgUUID(runID))
	for _, key := range columnFields {
		row = append(row, ToPgText(rec.Fields[key]))
	}

	var company any
	if rec.Company != nil {
		company = rec.Company
	}

	attrs := make(map[string]string)
	for k, v := range rec.Fields {
		if !isColumnField(k) {
			attrs[k] = v
		}
	}

	for _, v := range []any{nonEmpty(rec.Address), company, nonEmpty(rec.SocialNetworks), nonEmpty(attrs)} {
		b, err := jsonbValue(v)
		if err != nil {
			return nil, err
		}
		row = append(row, b)
	}
	return row, nil
}

func isColumnField(key string) bool {
	for _, f := range columnFields {
		if f == key {
			return true
		}
	}
	return false
}

func nonEmpty(m map[string]string) any {
	if len(m) == 0 {
		return nil
	}
	return m
}

// jsonbValue encodes v for a jsonb column; nil becomes SQL NULL.
func jsonbValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb: %w", err)
	}
	return b, nil
}

// RecentImports lists the latest import runs, newest first. An empty siteID
// lists all sites.
func (s *LeadStore) RecentImports(ctx context.Context, siteID string, limit int) ([]ImportRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, site_id, file_name, record_count, status, error, created_at
		   FROM import_runs
		  WHERE $1 = '' OR site_id = $1
		  ORDER BY created_at DESC
		  LIMIT $2`,
		siteID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		var (
			id                 pgtype.UUID
			fileName, errorMsg pgtype.Text
			run                ImportRun
		)
		if err := rows.Scan(&id, &run.SiteID, &fileName, &run.RecordCount, &run.Status, &errorMsg, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		run.ID = PgUUIDToString(id)
		run.FileName = fileName.String
		run.Error = errorMsg.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import runs: %w", err)
	}
	return runs, nil
}
