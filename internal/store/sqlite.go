package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/margincraft/resale-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqldb.Exec(pragma); err != nil {
			_ = sqldb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqldb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS product_candidates (
	id                      TEXT PRIMARY KEY,
	asin                    TEXT NOT NULL UNIQUE,
	title                   TEXT,
	category                TEXT,
	source_marketplace      TEXT NOT NULL DEFAULT 'amazon_fr',
	avg_price               REAL,
	bsr                     INTEGER,
	estimated_sales_per_day REAL,
	reviews_count           INTEGER,
	rating                  REAL,
	raw_data                TEXT,
	status                  TEXT NOT NULL DEFAULT 'new',
	created_at              DATETIME NOT NULL,
	updated_at              DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidates_status ON product_candidates(status);

CREATE TABLE IF NOT EXISTS sourcing_options (
	id                 TEXT PRIMARY KEY,
	candidate_id       TEXT NOT NULL REFERENCES product_candidates(id) ON DELETE CASCADE,
	supplier_name      TEXT NOT NULL,
	sourcing_type      TEXT NOT NULL,
	unit_cost          REAL,
	shipping_cost_unit REAL,
	moq                INTEGER,
	lead_time_days     INTEGER,
	brandable          INTEGER NOT NULL DEFAULT 0,
	bundle_capable     INTEGER NOT NULL DEFAULT 0,
	notes              TEXT,
	raw_supplier_data  TEXT,
	created_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_options_candidate ON sourcing_options(candidate_id);

CREATE TABLE IF NOT EXISTS product_scores (
	id                      TEXT PRIMARY KEY,
	candidate_id            TEXT NOT NULL REFERENCES product_candidates(id) ON DELETE CASCADE,
	option_id               TEXT NOT NULL REFERENCES sourcing_options(id) ON DELETE CASCADE,
	selling_price_target    REAL NOT NULL,
	fees_estimate           REAL,
	logistics_cost_estimate REAL,
	margin_absolute         REAL,
	margin_percent          REAL,
	gross_profit            REAL,
	net_profit_estimated    REAL,
	estimated_sales_per_day REAL,
	risk_factor             REAL NOT NULL,
	global_score            REAL,
	decision                TEXT NOT NULL,
	created_at              DATETIME NOT NULL,
	UNIQUE (candidate_id, option_id)
);

CREATE INDEX IF NOT EXISTS idx_scores_candidate ON product_scores(candidate_id);

CREATE TABLE IF NOT EXISTS listing_templates (
	id            TEXT PRIMARY KEY,
	candidate_id  TEXT NOT NULL UNIQUE REFERENCES product_candidates(id) ON DELETE CASCADE,
	title         TEXT NOT NULL,
	bullet_points TEXT,
	description   TEXT,
	search_terms  TEXT,
	brandable     INTEGER NOT NULL DEFAULT 0,
	brand_name    TEXT,
	created_at    DATETIME NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertCandidate mirrors the Postgres single-statement upsert. The
// insert sets created_at = updated_at to the same nanosecond timestamp,
// so created is detected as created_at == updated_at after RETURNING.
func (s *SQLiteStore) UpsertCandidate(ctx context.Context, c model.Candidate, force bool) (*model.Candidate, bool, error) {
	id := c.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	var out model.Candidate
	var createdAt, updatedAt time.Time
	var rawData sql.NullString
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO product_candidates (
			id, asin, title, category, source_marketplace, avg_price, bsr,
			estimated_sales_per_day, reviews_count, rating, raw_data, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'new', ?, ?)
		ON CONFLICT (asin) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			source_marketplace = excluded.source_marketplace,
			avg_price = excluded.avg_price,
			bsr = excluded.bsr,
			estimated_sales_per_day = excluded.estimated_sales_per_day,
			reviews_count = excluded.reviews_count,
			rating = excluded.rating,
			raw_data = excluded.raw_data,
			status = CASE
				WHEN ? THEN 'new'
				WHEN product_candidates.status IN ('scored', 'selected', 'launched')
					THEN product_candidates.status
				ELSE 'new'
			END,
			updated_at = excluded.updated_at
		RETURNING id, asin, title, category, source_marketplace, avg_price, bsr,
			estimated_sales_per_day, reviews_count, rating, raw_data, status,
			created_at, updated_at`,
		id, c.ASIN, c.Title, c.Category, c.SourceMarketplace, c.AvgPrice, c.BSR,
		c.EstimatedSalesPerDay, c.ReviewsCount, c.Rating, string(c.RawData),
		now, now, force,
	).Scan(
		&out.ID, &out.ASIN, &out.Title, &out.Category, &out.SourceMarketplace,
		&out.AvgPrice, &out.BSR, &out.EstimatedSalesPerDay, &out.ReviewsCount,
		&out.Rating, &rawData, &out.Status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: upsert candidate %s", c.ASIN)
	}
	if rawData.Valid {
		out.RawData = json.RawMessage(rawData.String)
	}
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return &out, createdAt.Equal(updatedAt), nil
}

const sqliteCandidateColumns = `id, asin, title, category, source_marketplace, avg_price, bsr,
	estimated_sales_per_day, reviews_count, rating, raw_data, status, created_at, updated_at`

func (s *SQLiteStore) ListCandidatesWithoutOptions(ctx context.Context) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteCandidateColumns+`
		FROM product_candidates c
		WHERE NOT EXISTS (SELECT 1 FROM sourcing_options o WHERE o.candidate_id = c.id)
		ORDER BY c.created_at`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list candidates without options")
	}
	defer rows.Close()
	return scanSQLiteCandidates(rows)
}

func (s *SQLiteStore) UpdateCandidateStatus(ctx context.Context, candidateID string, status model.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE product_candidates SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), candidateID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update status %s", candidateID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("candidate not found: %s", candidateID)
	}
	return nil
}

func (s *SQLiteStore) InsertOptions(ctx context.Context, options []model.SourcingOption) (int, error) {
	if len(options) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert options")
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, o := range options {
		id := o.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO sourcing_options (
			id, candidate_id, supplier_name, sourcing_type, unit_cost,
			shipping_cost_unit, moq, lead_time_days, brandable, bundle_capable,
			notes, raw_supplier_data, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, o.CandidateID, o.SupplierName, string(o.SourcingType), o.UnitCost,
			o.ShippingCostUnit, o.MOQ, o.LeadTimeDays, o.Brandable, o.BundleCapable,
			o.Notes, string(o.RawSupplierData), now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert option %s", o.CandidateID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert options")
	}
	return len(options), nil
}

func (s *SQLiteStore) ListPairsWithoutScores(ctx context.Context) ([]model.Pair, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
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
		return nil, eris.Wrap(err, "sqlite: list pairs without scores")
	}
	defer rows.Close()

	var pairs []model.Pair
	for rows.Next() {
		var p model.Pair
		var rawData, rawSupplier sql.NullString
		var sourcingType string
		if err := rows.Scan(
			&p.Candidate.ID, &p.Candidate.ASIN, &p.Candidate.Title, &p.Candidate.Category,
			&p.Candidate.SourceMarketplace, &p.Candidate.AvgPrice, &p.Candidate.BSR,
			&p.Candidate.EstimatedSalesPerDay, &p.Candidate.ReviewsCount, &p.Candidate.Rating,
			&rawData, &p.Candidate.Status, &p.Candidate.CreatedAt, &p.Candidate.UpdatedAt,
			&p.Option.ID, &p.Option.CandidateID, &p.Option.SupplierName, &sourcingType,
			&p.Option.UnitCost, &p.Option.ShippingCostUnit, &p.Option.MOQ, &p.Option.LeadTimeDays,
			&p.Option.Brandable, &p.Option.BundleCapable, &p.Option.Notes,
			&rawSupplier, &p.Option.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pair")
		}
		if rawData.Valid {
			p.Candidate.RawData = json.RawMessage(rawData.String)
		}
		if rawSupplier.Valid {
			p.Option.RawSupplierData = json.RawMessage(rawSupplier.String)
		}
		p.Option.SourcingType = model.SourcingType(sourcingType)
		pairs = append(pairs, p)
	}
	return pairs, eris.Wrap(rows.Err(), "sqlite: iterate pairs")
}

func (s *SQLiteStore) ReplaceScores(ctx context.Context, candidateID string, scores []model.Score) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace scores")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM product_scores WHERE candidate_id = ?`, candidateID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: delete scores %s", candidateID)
	}

	now := time.Now().UTC()
	for _, sc := range scores {
		id := sc.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO product_scores (
			id, candidate_id, option_id, selling_price_target, fees_estimate,
			logistics_cost_estimate, margin_absolute, margin_percent, gross_profit,
			net_profit_estimated, estimated_sales_per_day, risk_factor, global_score,
			decision, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, candidateID, sc.OptionID, sc.SellingPriceTarget, sc.FeesEstimate,
			sc.LogisticsCostEstimate, sc.MarginAbsolute, sc.MarginPercent, sc.GrossProfit,
			sc.NetProfitEstimated, sc.EstimatedSalesPerDay, sc.RiskFactor, sc.GlobalScore,
			string(sc.Decision), now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert score %s", candidateID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace scores")
}

func (s *SQLiteStore) ListSelectedWithoutListing(ctx context.Context) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteCandidateColumns+`
		FROM product_candidates c
		WHERE c.status = 'selected'
		AND NOT EXISTS (SELECT 1 FROM listing_templates l WHERE l.candidate_id = c.id)
		ORDER BY c.created_at`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list selected without listing")
	}
	defer rows.Close()
	return scanSQLiteCandidates(rows)
}

func (s *SQLiteStore) BestOptionFor(ctx context.Context, candidateID string) (*model.SourcingOption, error) {
	var o model.SourcingOption
	var sourcingType string
	var rawSupplier sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT
		o.id, o.candidate_id, o.supplier_name, o.sourcing_type, o.unit_cost,
		o.shipping_cost_unit, o.moq, o.lead_time_days, o.brandable, o.bundle_capable,
		o.notes, o.raw_supplier_data, o.created_at
		FROM sourcing_options o
		LEFT JOIN product_scores s ON s.option_id = o.id
		WHERE o.candidate_id = ?
		ORDER BY CASE WHEN s.decision = 'A_launch' THEN 0 ELSE 1 END,
			s.global_score DESC, o.created_at
		LIMIT 1`, candidateID,
	).Scan(
		&o.ID, &o.CandidateID, &o.SupplierName, &sourcingType, &o.UnitCost,
		&o.ShippingCostUnit, &o.MOQ, &o.LeadTimeDays, &o.Brandable,
		&o.BundleCapable, &o.Notes, &rawSupplier, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: best option for %s", candidateID)
	}
	o.SourcingType = model.SourcingType(sourcingType)
	if rawSupplier.Valid {
		o.RawSupplierData = json.RawMessage(rawSupplier.String)
	}
	return &o, nil
}

func (s *SQLiteStore) InsertListing(ctx context.Context, tpl model.ListingTemplate) error {
	id := tpl.ID
	if id == "" {
		id = uuid.New().String()
	}
	bullets, err := json.Marshal(tpl.BulletPoints)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal bullet points")
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO listing_templates (
		id, candidate_id, title, bullet_points, description, search_terms,
		brandable, brand_name, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, tpl.CandidateID, tpl.Title, string(bullets), tpl.Description,
		tpl.SearchTerms, tpl.Brandable, tpl.BrandName, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert listing %s", tpl.CandidateID)
}

func (s *SQLiteStore) Counts(ctx context.Context) (*StatusCounts, error) {
	counts := &StatusCounts{
		Candidates: make(map[model.Status]int),
		Decisions:  make(map[model.Decision]int),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, count(*) FROM product_candidates GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count candidates")
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		counts.Candidates[model.Status(status)] = n
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT decision, count(*) FROM product_scores GROUP BY decision`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count decisions")
	}
	for rows.Next() {
		var decision string
		var n int
		if err := rows.Scan(&decision, &n); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan decision count")
		}
		counts.Decisions[model.Decision(decision)] = n
	}
	rows.Close()

	err = s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT count(*) FROM sourcing_options),
			(SELECT count(*) FROM listing_templates)`,
	).Scan(&counts.Options, &counts.Listings)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count options and listings")
	}
	return counts, nil
}

func scanSQLiteCandidates(rows *sql.Rows) ([]model.Candidate, error) {
	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		var rawData sql.NullString
		if err := rows.Scan(
			&c.ID, &c.ASIN, &c.Title, &c.Category, &c.SourceMarketplace,
			&c.AvgPrice, &c.BSR, &c.EstimatedSalesPerDay, &c.ReviewsCount,
			&c.Rating, &rawData, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		if rawData.Valid {
			c.RawData = json.RawMessage(rawData.String)
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate candidates")
}
