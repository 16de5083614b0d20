package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

//go:embed migrations/001_reports.sql
var migrationV1 string

// timeLayout has a fixed width so text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteReportStore implements core.ReportStore on a SQLite database.
type SQLiteReportStore struct {
	dbPath string
	db     *sql.DB
	mu     sync.RWMutex
}

// NewSQLiteReportStore opens (creating if needed) the database at dbPath.
func NewSQLiteReportStore(dbPath string) (*SQLiteReportStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &SQLiteReportStore{dbPath: dbPath, db: db}

	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file.
func (s *SQLiteReportStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteReportStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteReportStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Fresh database.
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Save implements core.ReportStore. Saving an existing ID replaces it.
func (s *SQLiteReportStore) Save(ctx context.Context, r *core.StoredReport) error {
	if r == nil || r.ID == "" || r.Report == nil {
		return core.ErrValidation(core.CodeInvalidConfig, "stored report needs an ID and a report")
	}
	reportJSON, err := json.Marshal(r.Report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	rolesJSON, err := json.Marshal(r.Roles)
	if err != nil {
		return fmt.Errorf("marshaling roles: %w", err)
	}
	sum := r.Summary()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (
			id, created_at, document_digest, document_preview, roles,
			final_sentiment, final_confidence, agreement_level,
			consensus_reached, rounds, report_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			document_digest = excluded.document_digest,
			document_preview = excluded.document_preview,
			roles = excluded.roles,
			final_sentiment = excluded.final_sentiment,
			final_confidence = excluded.final_confidence,
			agreement_level = excluded.agreement_level,
			consensus_reached = excluded.consensus_reached,
			rounds = excluded.rounds,
			report_json = excluded.report_json
	`,
		r.ID,
		r.CreatedAt.UTC().Format(timeLayout),
		r.DocumentDigest,
		r.DocumentPreview,
		string(rolesJSON),
		string(sum.FinalSentiment),
		sum.FinalConfidence,
		string(sum.AgreementLevel),
		sum.ConsensusReached,
		sum.Rounds,
		string(reportJSON),
	)
	if err != nil {
		return core.ErrState(core.CodeStoreFailed, "saving report").WithCause(err)
	}
	return nil
}

// Get implements core.ReportStore.
func (s *SQLiteReportStore) Get(ctx context.Context, id string) (*core.StoredReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		r          core.StoredReport
		createdAt  string
		rolesJSON  string
		reportJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, document_digest, document_preview, roles, report_json
		FROM reports WHERE id = ?
	`, id).Scan(&r.ID, &createdAt, &r.DocumentDigest, &r.DocumentPreview, &rolesJSON, &reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reportNotFound(id)
	}
	if err != nil {
		return nil, core.ErrState(core.CodeStoreFailed, "loading report").WithCause(err)
	}

	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(rolesJSON), &r.Roles); err != nil {
		return nil, fmt.Errorf("unmarshaling roles: %w", err)
	}
	r.Report = &core.ConsensusReport{}
	if err := json.Unmarshal([]byte(reportJSON), r.Report); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}
	return &r, nil
}

// List implements core.ReportStore.
func (s *SQLiteReportStore) List(ctx context.Context, limit int) ([]core.ReportSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, created_at, document_preview, final_sentiment, final_confidence,
			agreement_level, consensus_reached, rounds
		FROM reports ORDER BY created_at DESC, id ASC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.ErrState(core.CodeStoreFailed, "listing reports").WithCause(err)
	}
	defer rows.Close()

	out := []core.ReportSummary{}
	for rows.Next() {
		var (
			sum       core.ReportSummary
			createdAt string
			sentiment string
			agreement string
		)
		if err := rows.Scan(&sum.ID, &createdAt, &sum.DocumentPreview, &sentiment,
			&sum.FinalConfidence, &agreement, &sum.ConsensusReached, &sum.Rounds); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		sum.FinalSentiment = core.Sentiment(sentiment)
		sum.AgreementLevel = core.AgreementLevel(agreement)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete implements core.ReportStore.
func (s *SQLiteReportStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return core.ErrState(core.CodeStoreFailed, "deleting report").WithCause(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reportNotFound(id)
	}
	return nil
}

func reportNotFound(id string) *core.DomainError {
	err := core.ErrNotFound("report", id)
	err.Code = core.CodeReportNotFound
	return err
}
