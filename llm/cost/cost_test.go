package cost

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ariavoice/control-plane/configplane"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gorm.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn: mockDB,
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	return mockDB, mock, gormDB
}

func TestTableComputeUsesConfiguredPricing(t *testing.T) {
	table := NewTable([]configplane.BackendDescriptor{
		{ModelName: "gpt-4o", Pricing: &configplane.Pricing{InputPerMillion: 2.5, OutputPerMillion: 10}},
		{ModelName: "local-llama", Pricing: nil},
	})

	cost := table.Compute("gpt-4o", 1_000_000, 500_000)
	assert.InDelta(t, 2.5+5, cost, 1e-9)

	assert.Equal(t, float64(0), table.Compute("local-llama", 1_000_000, 1_000_000))
	assert.Equal(t, float64(0), table.Compute("unknown-model", 1_000_000, 1_000_000))
}

func TestTableLookupReportsMissingModel(t *testing.T) {
	table := NewTable(nil)
	_, ok := table.Lookup("gpt-4o")
	assert.False(t, ok)
}

func TestGORMSinkPersistsRecord(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "sc_llm_usage_records"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	sink := NewGORMSink(gormDB, 1, zap.NewNop())
	sink.Record(UsageRecord{
		Provider:     "openai",
		Model:        "gpt-4o",
		InputTokens:  100,
		OutputTokens: 50,
		CostUSD:      0.01,
		LatencyMS:    250,
		RequestID:    "req-1",
	})
	sink.Close()

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGORMSinkDropsWhenQueueFull(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	// No ExpectQuery set up: if Record ever blocked instead of dropping,
	// the unexpected call would fail mock.ExpectationsWereMet.
	sink := &GORMSink{db: gormDB, logger: zap.NewNop(), queue: make(chan UsageRecord)}
	sink.Record(UsageRecord{RequestID: "dropped"})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNopSinkDiscardsSilently(t *testing.T) {
	var s Sink = NopSink{}
	s.Record(UsageRecord{RequestID: "ignored"})
	s.Close()
}

func TestUsageRecordDefaultsStoredAtOnPersist(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "sc_llm_usage_records"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	var storedAt time.Time
	require.NoError(t, gormDB.Callback().Create().Before("gorm:create").Register("test:capture_stored_at", func(db *gorm.DB) {
		if rec, ok := db.Statement.Dest.(*UsageRecord); ok {
			storedAt = rec.StoredAt
		}
	}))

	sink := NewGORMSink(gormDB, 1, zap.NewNop())
	before := time.Now()
	sink.Record(UsageRecord{RequestID: "req-2"})
	sink.Close()

	require.NoError(t, mock.ExpectationsWereMet())
	assert.False(t, before.After(storedAt))
}
