package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/margincraft/resale-cli/internal/db"
	"github.com/margincraft/resale-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const candidateColumns = `id, asin, title, category, source_marketplace, avg_price, bsr,
	estimated_sales_per_day, reviews_count, rating, raw_data, status, created_at, updated_at`

const optionColumns = `o.id, o.candidate_id, o.supplier_name, o.sourcing_type, o.unit_cost,
	o.shipping_cost_unit, o.moq, o.lead_time_days, o.brandable, o.bundle_capable, o.notes,
	o.raw_supplier_data, o.created_at`

// upsertCandidateSQL folds an observation into product_candidates in one
// statement. The CASE keeps the status of candidates already worked on
// (scored, selected, launched) unless the caller forces a reset, and
// xmax = 0 distinguishes a fresh insert from a conflict update.
const upsertCandidateSQL = `
INSERT INTO product_candidates (
	id, asin, title, category, source_marketplace, avg_price, bsr,
	estimated_sales_per_day, reviews_count, rating, raw_data, status, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'new', now(), now())
ON CONFLICT (asin) DO UPDATE SET
	title = EXCLUDED.title,
	category = EXCLUDED.category,
	source_marketplace = EXCLUDED.source_marketplace,
	avg_price = EXCLUDED.avg_price,
	bsr = EXCLUDED.bsr,
	estimated_sales_per_day = EXCLUDED.estimated_sales_per_day,
	reviews_count = EXCLUDED.reviews_count,
	rating = EXCLUDED.rating,
	raw_data = EXCLUDED.raw_data,
	status = CASE
		WHEN $12 THEN 'new'
		WHEN product_candidates.status IN ('scored', 'selected', 'launched')
			THEN product_candidates.status
		ELSE 'new'
	END,
	updated_at = now()
RETURNING ` + candidateColumns + `, (xmax = 0) AS created`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"upsert_candidate": upsertCandidateSQL,
	"update_candidate_status": `UPDATE product_candidates
		SET status = $1, updated_at = now() WHERE id = $2`,
	"best_option_for": `SELECT ` + optionColumns + `
		FROM sourcing_options o
		LEFT JOIN product_scores s ON s.option_id = o.id
		WHERE o.candidate_id = $1
		ORDER BY CASE WHEN s.decision = 'A_launch' THEN 0 ELSE 1 END,
			s.global_score DESC NULLS LAST, o.created_at
		LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS product_candidates (
	id                      TEXT PRIMARY KEY,
	asin                    TEXT NOT NULL UNIQUE,
	title                   TEXT,
	category                TEXT,
	source_marketplace      TEXT NOT NULL DEFAULT 'amazon_fr',
	avg_price               DOUBLE PRECISION,
	bsr                     INTEGER,
	estimated_sales_per_day DOUBLE PRECISION,
	reviews_count           INTEGER,
	rating                  DOUBLE PRECISION,
	raw_data                JSONB,
	status                  TEXT NOT NULL DEFAULT 'new',
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_candidates_status ON product_candidates(status);
CREATE INDEX IF NOT EXISTS idx_candidates_category ON product_candidates(category);

CREATE TABLE IF NOT EXISTS sourcing_options (
	id                 TEXT PRIMARY KEY,
	candidate_id       TEXT NOT NULL REFERENCES product_candidates(id) ON DELETE CASCADE,
	supplier_name      TEXT NOT NULL,
	sourcing_type      TEXT NOT NULL,
	unit_cost          DOUBLE PRECISION,
	shipping_cost_unit DOUBLE PRECISION,
	moq                INTEGER,
	lead_time_days     INTEGER,
	brandable          BOOLEAN NOT NULL DEFAULT FALSE,
	bundle_capable     BOOLEAN NOT NULL DEFAULT FALSE,
	notes              TEXT,
	raw_supplier_data  JSONB,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_options_candidate ON sourcing_options(candidate_id);

CREATE TABLE IF NOT EXISTS product_scores (
	id                      TEXT PRIMARY KEY,
	candidate_id            TEXT NOT NULL REFERENCES product_candidates(id) ON DELETE CASCADE,
	option_id               TEXT NOT NULL REFERENCES sourcing_options(id) ON DELETE CASCADE,
	selling_price_target    DOUBLE PRECISION NOT NULL,
	fees_estimate           DOUBLE PRECISION,
	logistics_cost_estimate DOUBLE PRECISION,
	margin_absolute         DOUBLE PRECISION,
	margin_percent          DOUBLE PRECISION,
	gross_profit            DOUBLE PRECISION,
	net_profit_estimated    DOUBLE PRECISION,
	estimated_sales_per_day DOUBLE PRECISION,
	risk_factor             DOUBLE PRECISION NOT NULL,
	global_score            DOUBLE PRECISION,
	decision                TEXT NOT NULL,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (candidate_id, option_id)
);

CREATE INDEX IF NOT EXISTS idx_scores_candidate ON product_scores(candidate_id);
CREATE INDEX IF NOT EXISTS idx_scores_decision ON product_scores(decision);

CREATE TABLE IF NOT EXISTS listing_templates (
	id            TEXT PRIMARY KEY,
	candidate_id  TEXT NOT NULL UNIQUE REFERENCES product_candidates(id) ON DELETE CASCADE,
	title         TEXT NOT NULL,
	bullet_points JSONB,
	description   TEXT,
	search_terms  TEXT,
	brandable     BOOLEAN NOT NULL DEFAULT FALSE,
	brand_name    TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertCandidate(ctx context.Context, c model.Candidate, force bool) (*model.Candidate, bool, error) {
	id := c.ID
	if id == "" {
		id = uuid.New().String()
	}

	var out model.Candidate
	var created bool
	err := s.pool.QueryRow(ctx, upsertCandidateSQL,
		id, c.ASIN, c.Title, c.Category, c.SourceMarketplace,
		c.AvgPrice, c.BSR, c.EstimatedSalesPerDay, c.ReviewsCount, c.Rating,
		c.RawData, force,
	).Scan(
		&out.ID, &out.ASIN, &out.Title, &out.Category, &out.SourceMarketplace,
		&out.AvgPrice, &out.BSR, &out.EstimatedSalesPerDay, &out.ReviewsCount,
		&out.Rating, &out.RawData, &out.Status, &out.CreatedAt, &out.UpdatedAt,
		&created,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: upsert candidate %s", c.ASIN)
	}
	return &out, created, nil
}

func (s *PostgresStore) ListCandidatesWithoutOptions(ctx context.Context) ([]model.Candidate, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+candidateColumns+`
		FROM product_candidates c
		WHERE NOT EXISTS (SELECT 1 FROM sourcing_options o WHERE o.candidate_id = c.id)
		ORDER BY c.created_at`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list candidates without options")
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func (s *PostgresStore) UpdateCandidateStatus(ctx context.Context, candidateID string, status model.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE product_candidates SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), candidateID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update status %s", candidateID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("candidate not found: %s", candidateID)
	}
	return nil
}

func (s *PostgresStore) InsertOptions(ctx context.Context, options []model.SourcingOption) (int, error) {
	if len(options) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(options))
	for _, o := range options {
		id := o.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{
			id, o.CandidateID, o.SupplierName, string(o.SourcingType),
			o.UnitCost, o.ShippingCostUnit, o.MOQ, o.LeadTimeDays,
			o.Brandable, o.BundleCapable, o.Notes, o.RawSupplierData, now,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "sourcing_options", []string{
		"id", "candidate_id", "supplier_name", "sourcing_type", "unit_cost",
		"shipping_cost_unit", "moq", "lead_time_days", "brandable",
		"bundle_capable", "notes", "raw_supplier_data", "created_at",
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert options")
	}
	return int(n), nil
}

func (s *PostgresStore) ListPairsWithoutScores(ctx context.Context) ([]model.Pair, error) {
	rows, err := s.pool.Query(ctx, `SELECT
		c.id, c.asin, c.title, c.category, c.source_marketplace, c.avg_price, c.bsr,
		c.estimated_sales_per_day, c.reviews_count, c.rating, c.raw_data, c.status,
		c.created_at, c.updated_at,
		o.id, o.candidate_id, o.supplier_name, o.sourcing_type, o.unit_cost,
		o.shipping_cost_unit, o.moq, o.lead_time_days, o.brandable, o.bundle_capable,
		o.notes, o.raw_supplier_data, o.created_at
		FROM sourcing_options o
		JOIN product_candidates c ON c.id = o.candidate_id
		WHERE o.candidate_id IN (
			SELECT o2.candidate_id FROM sourcing_options o2
			WHERE NOT EXISTS (SELECT 1 FROM product_scores s WHERE s.option_id = o2.id)
		)
		ORDER BY c.created_at, o.created_at`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pairs without scores")
	}
	defer rows.Close()

	var pairs []model.Pair
	for rows.Next() {
		var p model.Pair
		var sourcingType string
		if err := rows.Scan(
			&p.Candidate.ID, &p.Candidate.ASIN, &p.Candidate.Title, &p.Candidate.Category,
			&p.Candidate.SourceMarketplace, &p.Candidate.AvgPrice, &p.Candidate.BSR,
			&p.Candidate.EstimatedSalesPerDay, &p.Candidate.ReviewsCount, &p.Candidate.Rating,
			&p.Candidate.RawData, &p.Candidate.Status, &p.Candidate.CreatedAt, &p.Candidate.UpdatedAt,
			&p.Option.ID, &p.Option.CandidateID, &p.Option.SupplierName, &sourcingType,
			&p.Option.UnitCost, &p.Option.ShippingCostUnit, &p.Option.MOQ, &p.Option.LeadTimeDays,
			&p.Option.Brandable, &p.Option.BundleCapable, &p.Option.Notes,
			&p.Option.RawSupplierData, &p.Option.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pair")
		}
		p.Option.SourcingType = model.SourcingType(sourcingType)
		pairs = append(pairs, p)
	}
	return pairs, eris.Wrap(rows.Err(), "postgres: iterate pairs")
}

func (s *PostgresStore) ReplaceScores(ctx context.Context, candidateID string, scores []model.Score) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace scores")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM product_scores WHERE candidate_id = $1`, candidateID,
	); err != nil {
		return eris.Wrapf(err, "postgres: delete scores %s", candidateID)
	}

	now := time.Now().UTC()
	for _, sc := range scores {
		id := sc.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := tx.Exec(ctx, `INSERT INTO product_scores (
			id, candidate_id, option_id, selling_price_target, fees_estimate,
			logistics_cost_estimate, margin_absolute, margin_percent, gross_profit,
			net_profit_estimated, estimated_sales_per_day, risk_factor, global_score,
			decision, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			id, candidateID, sc.OptionID, sc.SellingPriceTarget, sc.FeesEstimate,
			sc.LogisticsCostEstimate, sc.MarginAbsolute, sc.MarginPercent, sc.GrossProfit,
			sc.NetProfitEstimated, sc.EstimatedSalesPerDay, sc.RiskFactor, sc.GlobalScore,
			string(sc.Decision), now,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert score %s", candidateID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace scores")
}

func (s *PostgresStore) ListSelectedWithoutListing(ctx context.Context) ([]model.Candidate, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+candidateColumns+`
		FROM product_candidates c
		WHERE c.status = 'selected'
		AND NOT EXISTS (SELECT 1 FROM listing_templates l WHERE l.candidate_id = c.id)
		ORDER BY c.created_at`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list selected without listing")
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func (s *PostgresStore) BestOptionFor(ctx context.Context, candidateID string) (*model.SourcingOption, error) {
	var o model.SourcingOption
	var sourcingType string
	err := s.pool.QueryRow(ctx, `SELECT `+optionColumns+`
		FROM sourcing_options o
		LEFT JOIN product_scores s ON s.option_id = o.id
		WHERE o.candidate_id = $1
		ORDER BY CASE WHEN s.decision = 'A_launch' THEN 0 ELSE 1 END,
			s.global_score DESC NULLS LAST, o.created_at
		LIMIT 1`, candidateID,
	).Scan(
		&o.ID, &o.CandidateID, &o.SupplierName, &sourcingType, &o.UnitCost,
		&o.ShippingCostUnit, &o.MOQ, &o.LeadTimeDays, &o.Brandable,
		&o.BundleCapable, &o.Notes, &o.RawSupplierData, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: best option for %s", candidateID)
	}
	o.SourcingType = model.SourcingType(sourcingType)
	return &o, nil
}

func (s *PostgresStore) InsertListing(ctx context.Context, tpl model.ListingTemplate) error {
	id := tpl.ID
	if id == "" {
		id = uuid.New().String()
	}
	bullets, err := json.Marshal(tpl.BulletPoints)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal bullet points")
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO listing_templates (
		id, candidate_id, title, bullet_points, description, search_terms,
		brandable, brand_name, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		id, tpl.CandidateID, tpl.Title, bullets, tpl.Description,
		tpl.SearchTerms, tpl.Brandable, tpl.BrandName,
	)
	return eris.Wrapf(err, "postgres: insert listing %s", tpl.CandidateID)
}

func (s *PostgresStore) Counts(ctx context.Context) (*StatusCounts, error) {
	counts := &StatusCounts{
		Candidates: make(map[model.Status]int),
		Decisions:  make(map[model.Decision]int),
	}

	rows, err := s.pool.Query(ctx,
		`SELECT status, count(*) FROM product_candidates GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count candidates")
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts.Candidates[model.Status(status)] = n
	}
	rows.Close()

	rows, err = s.pool.Query(ctx,
		`SELECT decision, count(*) FROM product_scores GROUP BY decision`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count decisions")
	}
	for rows.Next() {
		var decision string
		var n int
		if err := rows.Scan(&decision, &n); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "postgres: scan decision count")
		}
		counts.Decisions[model.Decision(decision)] = n
	}
	rows.Close()

	err = s.pool.QueryRow(ctx,
		`SELECT
			(SELECT count(*) FROM sourcing_options),
			(SELECT count(*) FROM listing_templates)`,
	).Scan(&counts.Options, &counts.Listings)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count options and listings")
	}
	return counts, nil
}

func scanCandidates(rows pgx.Rows) ([]model.Candidate, error) {
	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(
			&c.ID, &c.ASIN, &c.Title, &c.Category, &c.SourceMarketplace,
			&c.AvgPrice, &c.BSR, &c.EstimatedSalesPerDay, &c.ReviewsCount,
			&c.Rating, &c.RawData, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate candidates")
}
