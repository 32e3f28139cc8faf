package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margincraft/resale-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

// anyArgs returns n pgxmock.AnyArg matchers, for expectations where the
// argument values are not under test.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresStore_UpsertCandidate_Created(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	price := 24.99
	mock.ExpectQuery(`INSERT INTO product_candidates`).
		WithArgs(anyArgs(12)...).
		WillReturnRows(candidateRowsWithCreated(now, &price, true))

	out, created, err := s.UpsertCandidate(context.Background(), model.Candidate{
		ASIN:              "B00TEST001",
		Title:             "Silicone Baking Mat",
		Category:          "Home & Kitchen",
		SourceMarketplace: "amazon_fr",
		AvgPrice:          &price,
		RawData:           json.RawMessage(`{"src":"keepa"}`),
	}, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "cand-1", out.ID)
	assert.Equal(t, model.StatusNew, out.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func candidateRowsWithCreated(now time.Time, price *float64, created bool) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "asin", "title", "category", "source_marketplace", "avg_price", "bsr",
		"estimated_sales_per_day", "reviews_count", "rating", "raw_data", "status",
		"created_at", "updated_at", "created",
	}).AddRow(
		"cand-1", "B00TEST001", "Silicone Baking Mat", "Home & Kitchen", "amazon_fr",
		price, nil, nil, nil, nil, json.RawMessage(`{"src":"keepa"}`),
		model.StatusNew, now, now, created,
	)
}

func TestPostgresStore_UpsertCandidate_UpdatedKeepsSticky(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	price := 19.99
	rows := pgxmock.NewRows([]string{
		"id", "asin", "title", "category", "source_marketplace", "avg_price", "bsr",
		"estimated_sales_per_day", "reviews_count", "rating", "raw_data", "status",
		"created_at", "updated_at", "created",
	}).AddRow(
		"cand-2", "B00TEST002", "Garlic Press", "Home & Kitchen", "amazon_fr",
		&price, nil, nil, nil, nil, nil, model.StatusSelected, now, now, false,
	)

	mock.ExpectQuery(`ON CONFLICT \(asin\) DO UPDATE`).
		WithArgs(anyArgs(12)...).
		WillReturnRows(rows)

	out, created, err := s.UpsertCandidate(context.Background(), model.Candidate{
		ASIN:  "B00TEST002",
		Title: "Garlic Press",
	}, false)
	require.NoError(t, err)
	assert.False(t, created)
	// The status CASE preserved the worked status.
	assert.Equal(t, model.StatusSelected, out.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCandidateStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE product_candidates SET status`).
		WithArgs("scored", "cand-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateCandidateStatus(context.Background(), "cand-1", model.StatusScored)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCandidateStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE product_candidates SET status`).
		WithArgs("rejected", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCandidateStatus(context.Background(), "missing", model.StatusRejected)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertOptions_Empty(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	n, err := s.InsertOptions(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgresStore_InsertOptions_Copy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"sourcing_options"}, []string{
		"id", "candidate_id", "supplier_name", "sourcing_type", "unit_cost",
		"shipping_cost_unit", "moq", "lead_time_days", "brandable",
		"bundle_capable", "notes", "raw_supplier_data", "created_at",
	}).WillReturnResult(2)

	cost := 4.2
	n, err := s.InsertOptions(context.Background(), []model.SourcingOption{
		{CandidateID: "cand-1", SupplierName: "Shenzhen Direct", SourcingType: model.SourcingImportCN, UnitCost: &cost},
		{CandidateID: "cand-1", SupplierName: "Default Generic Supplier", SourcingType: model.SourcingEUWholesale},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPairsWithoutScores(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	price := 49.90
	cost := 12.0
	rows := pgxmock.NewRows([]string{
		"c.id", "c.asin", "c.title", "c.category", "c.source_marketplace", "c.avg_price",
		"c.bsr", "c.estimated_sales_per_day", "c.reviews_count", "c.rating", "c.raw_data",
		"c.status", "c.created_at", "c.updated_at",
		"o.id", "o.candidate_id", "o.supplier_name", "o.sourcing_type", "o.unit_cost",
		"o.shipping_cost_unit", "o.moq", "o.lead_time_days", "o.brandable",
		"o.bundle_capable", "o.notes", "o.raw_supplier_data", "o.created_at",
	}).AddRow(
		"cand-1", "B00PAIR001", "Desk Lamp", "Home & Kitchen", "amazon_fr", &price,
		nil, nil, nil, nil, nil, model.StatusNew, now, now,
		"opt-1", "cand-1", "Shenzhen Direct", "import_CN", &cost,
		nil, nil, nil, true, false, "", nil, now,
	)

	mock.ExpectQuery(`FROM sourcing_options o\s+JOIN product_candidates c`).
		WillReturnRows(rows)

	pairs, err := s.ListPairsWithoutScores(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "B00PAIR001", pairs[0].Candidate.ASIN)
	assert.Equal(t, "opt-1", pairs[0].Option.ID)
	assert.Equal(t, model.SourcingImportCN, pairs[0].Option.SourcingType)
	assert.True(t, pairs[0].Option.Brandable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceScores(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM product_scores WHERE candidate_id`).
		WithArgs("cand-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`INSERT INTO product_scores`).
		WithArgs(anyArgs(15)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	score := 468.0
	err := s.ReplaceScores(context.Background(), "cand-1", []model.Score{
		{OptionID: "opt-1", SellingPriceTarget: 50, RiskFactor: 0.1, GlobalScore: &score, Decision: model.DecisionLaunch},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceScores_RollsBackOnInsertError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM product_scores WHERE candidate_id`).
		WithArgs("cand-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO product_scores`).
		WithArgs(anyArgs(15)...).
		WillReturnError(pgx.ErrTxClosed)
	mock.ExpectRollback()

	err := s.ReplaceScores(context.Background(), "cand-1", []model.Score{
		{OptionID: "opt-1", Decision: model.DecisionDrop},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BestOptionFor_NoRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM sourcing_options o\s+LEFT JOIN product_scores`).
		WithArgs("cand-1").
		WillReturnError(pgx.ErrNoRows)

	opt, err := s.BestOptionFor(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Nil(t, opt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertListing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO listing_templates`).
		WithArgs(pgxmock.AnyArg(), "cand-1", "NORDIK Desk Lamp", pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), true, "NORDIK").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.InsertListing(context.Background(), model.ListingTemplate{
		CandidateID:  "cand-1",
		Title:        "NORDIK Desk Lamp",
		BulletPoints: []string{"NORDIK brand - premium quality guaranteed"},
		Brandable:    true,
		BrandName:    "NORDIK",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Counts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT status, count\(\*\) FROM product_candidates`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("new", 4).AddRow("selected", 2))
	mock.ExpectQuery(`SELECT decision, count\(\*\) FROM product_scores`).
		WillReturnRows(pgxmock.NewRows([]string{"decision", "count"}).
			AddRow("A_launch", 2).AddRow("C_drop", 5))
	mock.ExpectQuery(`SELECT count\(\*\) FROM sourcing_options`).
		WillReturnRows(pgxmock.NewRows([]string{"options", "listings"}).AddRow(7, 2))

	counts, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Candidates[model.StatusNew])
	assert.Equal(t, 2, counts.Candidates[model.StatusSelected])
	assert.Equal(t, 2, counts.Decisions[model.DecisionLaunch])
	assert.Equal(t, 5, counts.Decisions[model.DecisionDrop])
	assert.Equal(t, 7, counts.Options)
	assert.Equal(t, 2, counts.Listings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS product_candidates`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
