package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/backlink-service/internal/entity"
	"github.com/user/backlink-service/internal/repository"
)

const scanColumns = `id, project_id, requested_by, status, provider, root_domain,
	total_targets, processed_targets, correlation_id, error_summary,
	created_at, updated_at, started_at, finished_at`

// ScanRepoImpl persists scans, targets, results and links in PostgreSQL.
type ScanRepoImpl struct {
	db *pgxpool.Pool
}

func NewScanRepo(db *pgxpool.Pool) *ScanRepoImpl {
	return &ScanRepoImpl{db: db}
}

// CreateScan inserts the scan row, its targets and the driving job in one
// transaction, so a crash between them cannot orphan the scan.
func (r *ScanRepoImpl) CreateScan(ctx context.Context, scan *entity.Scan, urls []string, job *entity.Job) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var scanID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO scans (project_id, requested_by, status, provider, root_domain, total_targets, correlation_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		scan.ProjectID, scan.RequestedBy, scan.Status, scan.Provider,
		scan.RootDomain, scan.TotalTargets, scan.CorrelationID,
	).Scan(&scanID)
	if err != nil {
		return 0, fmt.Errorf("insert scan: %w", err)
	}

	batch := &pgx.Batch{}
	for _, u := range urls {
		batch.Queue(
			`INSERT INTO scan_targets (scan_id, url, normalized_url, status) VALUES ($1, $2, $3, $4)`,
			scanID, u, u, entity.TargetStatusQueued)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("insert targets: %w", err)
	}

	payload, err := json.Marshal(entity.ScanRunPayload{ScanID: scanID})
	if err != nil {
		return 0, err
	}
	job.Payload = payload
	if _, err := insertJobTx(ctx, tx, job); err != nil {
		return 0, fmt.Errorf("enqueue scan job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return scanID, nil
}

func (r *ScanRepoImpl) FindScan(ctx context.Context, scanID int64) (*entity.Scan, error) {
	row := r.db.QueryRow(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = $1`, scanID)
	return scanScan(row)
}

func (r *ScanRepoImpl) ListScansByProject(ctx context.Context, projectID int64, limit int) ([]entity.Scan, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE project_id = $1 ORDER BY id DESC LIMIT $2`,
		projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []entity.Scan
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, *s)
	}
	return scans, rows.Err()
}

func (r *ScanRepoImpl) ListTargets(ctx context.Context, scanID int64) ([]entity.ScanTarget, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, scan_id, url, normalized_url, status, created_at, updated_at
		 FROM scan_targets WHERE scan_id = $1 ORDER BY id ASC`,
		scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []entity.ScanTarget
	for rows.Next() {
		var t entity.ScanTarget
		if err := rows.Scan(&t.ID, &t.ScanID, &t.URL, &t.NormalizedURL, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func (r *ScanRepoImpl) MarkRunning(ctx context.Context, scanID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE scans SET status = $1, started_at = NOW(), updated_at = NOW() WHERE id = $2`,
		entity.ScanStatusRunning, scanID)
	return err
}

func (r *ScanRepoImpl) MarkCancelled(ctx context.Context, scanID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE scans SET status = $1, finished_at = NOW(), updated_at = NOW() WHERE id = $2`,
		entity.ScanStatusCancelled, scanID)
	return err
}

func (r *ScanRepoImpl) MarkCompleted(ctx context.Context, scanID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE scans SET status = $1, finished_at = NOW(), updated_at = NOW() WHERE id = $2`,
		entity.ScanStatusCompleted, scanID)
	return err
}

func (r *ScanRepoImpl) MarkFailed(ctx context.Context, scanID int64, summary string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE scans SET status = $1, error_summary = $2, finished_at = NOW(), updated_at = NOW() WHERE id = $3`,
		entity.ScanStatusFailed, summary, scanID)
	return err
}

// SaveBatch commits one processing batch: results, their links, target status
// flips and the processed counter, in a single transaction. This bounds
// durability syncs to one per batch instead of one per row.
func (r *ScanRepoImpl) SaveBatch(ctx context.Context, scanID int64, results []entity.ScanResult, processed int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := range results {
		res := &results[i]

		chain, err := json.Marshal(res.RedirectChain)
		if err != nil {
			return err
		}
		if res.RedirectChain == nil {
			chain = []byte(`[]`)
		}

		var resultID int64
		err = tx.QueryRow(ctx,
			`INSERT INTO scan_results (scan_id, target_id, source_url, source_domain, final_url, final_domain,
				http_status, fetch_status, redirect_chain, robots_noindex, x_robots_noindex, backlink_found,
				best_link_type, anchor_text, page_authority, domain_authority, provider_status, error_message, fetched_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			 RETURNING id`,
			scanID, res.TargetID, res.SourceURL, res.SourceDomain, res.FinalURL, res.FinalDomain,
			res.HTTPStatus, res.FetchStatus, chain, res.RobotsNoindex, res.XRobotsNoindex, res.BacklinkFound,
			res.BestLinkType, res.AnchorText, res.PageAuthority, res.DomainAuthority, res.ProviderStatus,
			res.ErrorMessage, res.FetchedAt,
		).Scan(&resultID)
		if err != nil {
			return fmt.Errorf("insert result for target %d: %w", res.TargetID, err)
		}

		if len(res.Links) > 0 {
			batch := &pgx.Batch{}
			for _, link := range res.Links {
				batch.Queue(
					`INSERT INTO scan_links (result_id, href, resolved_url, rel, link_type, anchor_text, is_target)
					 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					resultID, link.Href, link.ResolvedURL, link.Rel, link.LinkType, link.AnchorText, link.IsTarget)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("insert links for result %d: %w", resultID, err)
			}
		}

		if _, err := tx.Exec(ctx,
			`UPDATE scan_targets SET status = $1, updated_at = NOW() WHERE id = $2`,
			entity.TargetStatusCompleted, res.TargetID); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE scans SET processed_targets = $1, updated_at = NOW() WHERE id = $2`,
		processed, scanID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ScanRepoImpl) Results(ctx context.Context, scanID int64, filters entity.ResultFilters) ([]entity.ScanResult, error) {
	sql := `SELECT id, scan_id, target_id, source_url, source_domain, final_url, final_domain,
		http_status, fetch_status, redirect_chain, robots_noindex, x_robots_noindex, backlink_found,
		best_link_type, anchor_text, page_authority, domain_authority, provider_status, error_message,
		fetched_at, created_at
		FROM scan_results WHERE scan_id = $1`
	args := []any{scanID}

	if filters.FetchStatus != "" {
		args = append(args, filters.FetchStatus)
		sql += fmt.Sprintf(" AND fetch_status = $%d", len(args))
	}
	if filters.LinkType != "" {
		args = append(args, filters.LinkType)
		sql += fmt.Sprintf(" AND best_link_type = $%d", len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		sql += fmt.Sprintf(" AND (source_url ILIKE $%d OR anchor_text ILIKE $%d)", len(args), len(args))
	}

	switch filters.Sort {
	case "da_desc":
		sql += " ORDER BY domain_authority DESC NULLS LAST"
	case "da_asc":
		sql += " ORDER BY domain_authority ASC NULLS LAST"
	case "status_asc":
		sql += " ORDER BY fetch_status ASC"
	default:
		sql += " ORDER BY id DESC"
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []entity.ScanResult
	for rows.Next() {
		var res entity.ScanResult
		var chain []byte
		if err := rows.Scan(
			&res.ID, &res.ScanID, &res.TargetID, &res.SourceURL, &res.SourceDomain,
			&res.FinalURL, &res.FinalDomain, &res.HTTPStatus, &res.FetchStatus, &chain,
			&res.RobotsNoindex, &res.XRobotsNoindex, &res.BacklinkFound, &res.BestLinkType,
			&res.AnchorText, &res.PageAuthority, &res.DomainAuthority, &res.ProviderStatus,
			&res.ErrorMessage, &res.FetchedAt, &res.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(chain, &res.RedirectChain); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *ScanRepoImpl) PreviousCompleted(ctx context.Context, projectID, beforeID int64) (*entity.Scan, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+scanColumns+` FROM scans
		 WHERE project_id = $1 AND id < $2 AND status = $3
		 ORDER BY id DESC LIMIT 1`,
		projectID, beforeID, entity.ScanStatusCompleted)
	return scanScan(row)
}

func (r *ScanRepoImpl) Aggregates(ctx context.Context, scanID int64) (entity.ResultAggregate, error) {
	var agg entity.ResultAggregate
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN backlink_found THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(domain_authority), 0)
		 FROM scan_results WHERE scan_id = $1`,
		scanID,
	).Scan(&agg.Total, &agg.Backlinks, &agg.AvgDA)
	return agg, err
}

func scanScan(row pgx.Row) (*entity.Scan, error) {
	var s entity.Scan
	err := row.Scan(
		&s.ID, &s.ProjectID, &s.RequestedBy, &s.Status, &s.Provider, &s.RootDomain,
		&s.TotalTargets, &s.ProcessedTargets, &s.CorrelationID, &s.ErrorSummary,
		&s.CreatedAt, &s.UpdatedAt, &s.StartedAt, &s.FinishedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
