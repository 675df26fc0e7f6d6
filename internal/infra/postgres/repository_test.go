package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcmmap/api/pkg/domain/analytics"
	"github.com/grcmmap/api/pkg/domain/asset"
	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/finding"
	"github.com/grcmmap/api/pkg/domain/risk"
	"github.com/grcmmap/api/pkg/domain/shared"
	"github.com/grcmmap/api/pkg/domain/uow"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})
	return NewFromSQL(sqlDB), mock
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

func TestAssetRepository_Create(t *testing.T) {
	a, err := asset.NewAsset("10.0.0.5", "10.0.0.5", asset.TypeServer)
	require.NoError(t, err)

	t.Run("inserts inside a savepoint", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(q("SAVEPOINT asset_create")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(q("INSERT INTO assets")).
			WithArgs(a.ID().String(), "10.0.0.5", "10.0.0.5", "Server", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q("RELEASE SAVEPOINT asset_create")).WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, NewAssetRepository(db).Create(context.Background(), a))
	})

	t.Run("unique violation rolls back to the savepoint", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(q("SAVEPOINT asset_create")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(q("INSERT INTO assets")).WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectExec(q("ROLLBACK TO SAVEPOINT asset_create")).WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewAssetRepository(db).Create(context.Background(), a)
		require.Error(t, err)
		assert.ErrorIs(t, err, asset.ErrAssetAlreadyExists)
		assert.True(t, shared.IsAlreadyExists(err))
	})

	t.Run("other insert errors are wrapped", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(q("SAVEPOINT asset_create")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(q("INSERT INTO assets")).WillReturnError(errors.New("connection reset"))

		err := NewAssetRepository(db).Create(context.Background(), a)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
		assert.False(t, shared.IsAlreadyExists(err))
	})
}

func TestAssetRepository_GetByIP(t *testing.T) {
	columns := []string{"id", "asset_name", "ip_address", "asset_type", "created_at"}
	id := shared.NewID()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(q("FROM assets WHERE ip_address = $1")).
			WithArgs("10.0.0.5").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(id.String(), "10.0.0.5", "10.0.0.5", "Server", created))

		got, err := NewAssetRepository(db).GetByIP(context.Background(), "10.0.0.5")
		require.NoError(t, err)
		assert.Equal(t, id, got.ID())
		assert.Equal(t, asset.TypeServer, got.Type())
		assert.Equal(t, created, got.CreatedAt())
	})

	t.Run("missing maps to not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(q("FROM assets WHERE ip_address = $1")).
			WithArgs("10.0.0.9").
			WillReturnError(sql.ErrNoRows)

		_, err := NewAssetRepository(db).GetByIP(context.Background(), "10.0.0.9")
		assert.ErrorIs(t, err, asset.ErrAssetNotFound)
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestFindingRepository(t *testing.T) {
	assetID := shared.NewID()
	f, err := finding.NewFinding(assetID, finding.Normalized{
		AssetName:   "10.0.0.5",
		IPAddress:   "10.0.0.5",
		Title:       "Weak SSH ciphers",
		SourceType:  "Nessus",
		Severity:    finding.SeverityHigh,
		RawEvidence: finding.RawEvidence{"Port": "22"},
	})
	require.NoError(t, err)

	t.Run("create stores evidence as json", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(q("INSERT INTO findings")).
			WithArgs(f.ID().String(), assetID.String(), "Weak SSH ciphers", "Nessus", "High",
				[]byte(`{"Port":"22"}`), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewFindingRepository(db).Create(context.Background(), f))
	})

	t.Run("get decodes evidence", func(t *testing.T) {
		db, mock := newMockDB(t)
		rows := sqlmock.NewRows([]string{
			"id", "asset_id", "normalized_title", "source_type", "normalized_severity",
			"raw_evidence", "ingestion_date",
		}).AddRow(f.ID().String(), assetID.String(), "Weak SSH ciphers", "Nessus", "High",
			[]byte(`{"Port":"22","Plugin":null}`), time.Now().UTC())
		mock.ExpectQuery(q("FROM findings")).WithArgs(f.ID().String()).WillReturnRows(rows)

		got, err := NewFindingRepository(db).GetByID(context.Background(), f.ID())
		require.NoError(t, err)
		assert.Equal(t, finding.SeverityHigh, got.Severity())
		assert.Equal(t, "22", got.RawEvidence()["Port"])
		assert.Nil(t, got.RawEvidence()["Plugin"])
	})

	t.Run("missing maps to not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(q("FROM findings")).WillReturnError(sql.ErrNoRows)

		_, err := NewFindingRepository(db).GetByID(context.Background(), shared.NewID())
		assert.ErrorIs(t, err, finding.ErrFindingNotFound)
	})
}

func TestRiskRepository(t *testing.T) {
	findingID := shared.NewID()
	rk, err := risk.NewRisk(findingID, risk.Assessment{
		InherentScore: 16,
		Rating:        risk.RatingHigh,
		CIA:           risk.CIA{Confidentiality: 4, Integrity: 4, Availability: 4},
	})
	require.NoError(t, err)

	t.Run("second risk for a finding is rejected", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(q("INSERT INTO risks")).WillReturnError(&pq.Error{Code: "23505"})

		err := NewRiskRepository(db).Create(context.Background(), rk)
		assert.ErrorIs(t, err, risk.ErrRiskAlreadyExists)
	})

	t.Run("residual score is read back as nil", func(t *testing.T) {
		db, mock := newMockDB(t)
		rows := sqlmock.NewRows([]string{
			"id", "finding_id", "inherent_score", "residual_score", "risk_rating",
			"cia_confidentiality", "cia_integrity", "cia_availability", "created_at",
		}).AddRow(rk.ID().String(), findingID.String(), 16.0, nil, "High", 4.0, 4.0, 4.0, time.Now().UTC())
		mock.ExpectQuery(q("FROM risks")).WithArgs(findingID.String()).WillReturnRows(rows)

		got, err := NewRiskRepository(db).GetByFindingID(context.Background(), findingID)
		require.NoError(t, err)
		assert.Nil(t, got.ResidualScore())
		assert.Equal(t, risk.RatingHigh, got.Rating())
		assert.Equal(t, 4.0, got.CIA().Availability)
	})
}

func TestControlRepository(t *testing.T) {
	controlColumns := []string{"id", "control_name", "cia_domain"}
	const name = "Patch Management & Configuration Hardening"

	t.Run("create if absent returns the stored row", func(t *testing.T) {
		db, mock := newMockDB(t)
		c, err := compliance.NewControl(name, "Integrity, Availability")
		require.NoError(t, err)
		stored := shared.NewID()

		mock.ExpectExec(q("ON CONFLICT (control_name) DO NOTHING")).
			WithArgs(c.ID().String(), name, "Integrity, Availability").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q("FROM controls WHERE control_name = $1")).
			WithArgs(name).
			WillReturnRows(sqlmock.NewRows(controlColumns).AddRow(stored.String(), name, "Integrity, Availability"))

		got, err := NewControlRepository(db).CreateIfAbsent(context.Background(), c)
		require.NoError(t, err)
		assert.Equal(t, stored, got.ID())
	})

	t.Run("get by name maps missing rows", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(q("FROM controls WHERE control_name = $1")).WillReturnError(sql.ErrNoRows)

		_, err := NewControlRepository(db).GetByName(context.Background(), "Nope")
		assert.ErrorIs(t, err, compliance.ErrControlNotFound)
	})

	t.Run("link finding ignores duplicates", func(t *testing.T) {
		db, mock := newMockDB(t)
		findingID, controlID := shared.NewID(), shared.NewID()
		mock.ExpectExec(q("INSERT INTO finding_control_links")).
			WithArgs(findingID.String(), controlID.String()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, NewControlRepository(db).LinkFinding(context.Background(), findingID, controlID))
	})

	t.Run("list by finding", func(t *testing.T) {
		db, mock := newMockDB(t)
		findingID := shared.NewID()
		rows := sqlmock.NewRows(controlColumns).
			AddRow(shared.NewID().String(), "Access Control & Principle of Least Privilege", "Confidentiality").
			AddRow(shared.NewID().String(), name, nil)
		mock.ExpectQuery(q("ORDER BY c.control_name")).WithArgs(findingID.String()).WillReturnRows(rows)

		got, err := NewControlRepository(db).ListByFinding(context.Background(), findingID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, name, got[1].Name())
		assert.Empty(t, got[1].CIADomain())
	})
}

func TestFrameworkRepository_LinkControl(t *testing.T) {
	db, mock := newMockDB(t)
	frameworkID, controlID := shared.NewID(), shared.NewID()
	mock.ExpectExec(q("INSERT INTO framework_control_links")).
		WithArgs(frameworkID.String(), controlID.String(), "CM-3").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewFrameworkRepository(db).LinkControl(context.Background(), frameworkID, controlID, "CM-3"))
}

func TestAnalyticsRepository(t *testing.T) {
	t.Run("risks by rating", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(q("GROUP BY risk_rating")).
			WillReturnRows(sqlmock.NewRows([]string{"risk_rating", "count"}).
				AddRow("Critical", int64(1)).
				AddRow("Low", int64(3)))

		got, err := NewAnalyticsRepository(db).RisksByRating(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []analytics.RatingCount{{Rating: "Critical", Count: 1}, {Rating: "Low", Count: 3}}, got)
	})

	t.Run("empty results are empty slices", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(q("GROUP BY c.control_name")).
			WillReturnRows(sqlmock.NewRows([]string{"control_name", "count"}))
		mock.ExpectQuery(q("GROUP BY day")).
			WillReturnRows(sqlmock.NewRows([]string{"day", "count"}))

		repo := NewAnalyticsRepository(db)
		controls, err := repo.ControlMaturity(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, controls)
		assert.Empty(t, controls)

		trend, err := repo.FindingTrend(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, trend)
		assert.Empty(t, trend)
	})

	t.Run("query errors are wrapped", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(q("GROUP BY day")).WillReturnError(errors.New("boom"))

		_, err := NewAnalyticsRepository(db).FindingTrend(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "finding trend")
	})
}

func TestTxManager_Do(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("FROM assets WHERE ip_address = $1")).WillReturnError(sql.ErrNoRows)
		mock.ExpectCommit()

		err := NewTxManager(db).Do(context.Background(), func(ctx context.Context, u uow.UnitOfWork) error {
			_, err := u.Assets().GetByIP(ctx, "10.0.0.1")
			assert.True(t, shared.IsNotFound(err))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := NewTxManager(db).Do(context.Background(), func(context.Context, uow.UnitOfWork) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})
}

func TestDB_Transaction(t *testing.T) {
	t.Run("panic rolls back and re-panics", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "boom", func() {
			_ = db.Transaction(context.Background(), func(*sql.Tx) error { panic("boom") })
		})
	})

	t.Run("rollback failure joins both errors", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(errors.New("conn lost"))

		boom := errors.New("boom")
		err := db.Transaction(context.Background(), func(*sql.Tx) error { return boom })
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "conn lost")
	})

	t.Run("commit failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		err := db.Transaction(context.Background(), func(*sql.Tx) error { return nil })
		assert.ErrorContains(t, err, "failed to commit transaction")
	})
}
