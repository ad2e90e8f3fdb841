package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// BulkCreator persists transformed records for a site. It is the final step
// of an import.
type BulkCreator interface {
	BulkCreate(ctx context.Context, siteID string, records []DomainRecord) (BulkResult, error)
}

// BulkCreatorFunc adapts a function to BulkCreator.
type BulkCreatorFunc func(ctx context.Context, siteID string, records []DomainRecord) (BulkResult, error)

func (f BulkCreatorFunc) BulkCreate(ctx context.Context, siteID string, records []DomainRecord) (BulkResult, error) {
	return f(ctx, siteID, records)
}

// BulkResult is the outcome reported by a BulkCreator.
// Success=false is a failed import even when no error is returned.
type BulkResult struct {
	Success bool     `json:"success"`
	Count   int      `json:"count,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportRunStatus is the recorded outcome of one import attempt.
type ImportRunStatus string

const (
	RunSucceeded ImportRunStatus = "succeeded"
	RunFailed    ImportRunStatus = "failed"
)

// ImportRun is one row of import history.
type ImportRun struct {
	ID          string          `json:"id"`
	SiteID      string          `json:"siteId"`
	FileName    string          `json:"fileName"`
	RecordCount int             `json:"recordCount"`
	Status      ImportRunStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
