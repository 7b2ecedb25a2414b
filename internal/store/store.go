package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/smishguard/api/schemas"
	"github.com/xkilldash9x/smishguard/internal/urlextract"
)

// ErrNotFound is returned when no report has the requested ID.
var ErrNotFound = errors.New("report not found")

// Reputation outcome per URL as stored in analysis_urls.
const (
	reputationDangerous = "dangerous"
	reputationSafe      = "safe"
	reputationUnknown   = "unknown"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store persists analysis reports in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ schemas.ReportStore = (*Store)(nil)

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

const sqlInsertReport = `
        INSERT INTO analysis_reports (id, input_type, risk_level, message, url_count, reputation_ok, model_loaded, duration_ms, report, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
    `

var urlColumns = []string{"report_id", "url", "domain", "reputation_result", "ml_risk_score"}

// SaveReport writes the report and one row per analyzed URL in a single transaction.
func (s *Store) SaveReport(ctx context.Context, report *schemas.AnalysisReport) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	_, err = tx.Exec(ctx, sqlInsertReport,
		report.ID,
		string(report.InputType),
		string(report.Assessment.Level),
		report.Assessment.Message,
		len(report.Extraction.URLs),
		report.Reputation.Success,
		report.ModelLoaded,
		report.DurationMS,
		string(payload),
		report.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report %s: %w", report.ID, err)
	}

	if rows := urlRows(report); len(rows) > 0 {
		copied, err := tx.CopyFrom(ctx, pgx.Identifier{"analysis_urls"}, urlColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy report urls: %w", err)
		}
		if int(copied) != len(rows) {
			return fmt.Errorf("mismatch in copied urls count: expected %d, got %d", len(rows), copied)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Report persisted", zap.String("report_id", report.ID), zap.Int("urls", len(report.Extraction.URLs)))
	return nil
}

// urlRows flattens the per-stage outcome of every URL in the report.
func urlRows(report *schemas.AnalysisReport) [][]interface{} {
	dangerous := make(map[string]bool, len(report.Reputation.DangerousURLs))
	for _, u := range report.Reputation.DangerousURLs {
		dangerous[u] = true
	}
	scores := make(map[string]float64, len(report.Classifications))
	for _, v := range report.Classifications {
		if v.Available() {
			scores[v.URL] = v.Probabilities.Malicious
		}
	}

	rows := make([][]interface{}, 0, len(report.Extraction.URLs))
	for _, u := range report.Extraction.URLs {
		result := reputationUnknown
		if report.Reputation.Success {
			result = reputationSafe
			if dangerous[u] {
				result = reputationDangerous
			}
		}
		var score *float64
		if v, ok := scores[u]; ok {
			score = &v
		}
		rows = append(rows, []interface{}{
			report.ID, u, strings.ToLower(urlextract.ExtractDomain(u)), result, score,
		})
	}
	return rows
}

// GetReport loads a report by ID. Unknown or malformed IDs yield ErrNotFound.
func (s *Store) GetReport(ctx context.Context, id string) (*schemas.AnalysisReport, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT report FROM analysis_reports WHERE id = $1;`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report %s: %w", id, err)
	}
	return decodeReport(payload)
}

// ListRecent returns up to limit reports, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*schemas.AnalysisReport, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
        SELECT report
        FROM analysis_reports
        ORDER BY created_at DESC
        LIMIT $1;
    `
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*schemas.AnalysisReport, 0, limit)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		report, err := decodeReport(payload)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return reports, nil
}

func decodeReport(payload []byte) (*schemas.AnalysisReport, error) {
	var report schemas.AnalysisReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode stored report: %w", err)
	}
	return &report, nil
}
