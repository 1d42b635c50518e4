package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"NovaWallet/deploy/migrations"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(id, from string, at int64) PreviewRecord {
	return PreviewRecord{
		PreviewID:   id,
		FromAddress: from,
		ToAddress:   "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		Amount:      0.5,
		TokenSymbol: "ETH",
		ChainID:     1,
		Success:     true,
		Severity:    "medium",
		Warnings:    []string{"w"},
		CreatedAt:   at,
	}
}

func TestMemoryPreviewRepositoryPersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewMemoryPreviewRepository(dir)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, sampleRecord("a", "0xAAA", 1)))
	require.NoError(t, repo.Save(ctx, sampleRecord("b", "0xBBB", 2)))
	require.NoError(t, repo.Save(ctx, sampleRecord("c", "0xaaa", 3)))

	latest, err := repo.ListLatest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "c", latest[0].PreviewID)

	reopened, err := NewMemoryPreviewRepository(dir)
	require.NoError(t, err)
	byAddr, err := reopened.ListByAddress(ctx, "0xAAA", 0)
	require.NoError(t, err)
	require.Len(t, byAddr, 2)
	assert.Equal(t, "c", byAddr[0].PreviewID)
	assert.Equal(t, "a", byAddr[1].PreviewID)
	assert.Equal(t, []string{"w"}, byAddr[1].Warnings)
}

func TestSQLPreviewRepositorySave(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := sampleRecord("p-1", "0x1111111111111111111111111111111111111111", 100)
	mock.ExpectExec(regexp.QuoteMeta(insertPreviewSQL)).
		WithArgs("p-1", "", rec.FromAddress, rec.ToAddress, 0.5, "ETH", int64(1), true, "medium", `[]`, `["w"]`, false, int64(100)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewSQLPreviewRepositoryWithDB(db)
	require.NoError(t, repo.Save(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLPreviewRepositoryListByAddress(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"preview_id", "session_id", "from_address", "to_address", "amount", "token_symbol", "chain_id", "success", "severity", "issues", "warnings", "double_confirm", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta(selectPreviewSQL + ` WHERE from_address = ? ORDER BY created_at DESC, id DESC LIMIT ?`)).
		WithArgs("0xabc", 20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p-2", "s", "0xabc", "0xdef", 2.0, "ETH", int64(1), false, "critical", `["Saldo tidak cukup"]`, `[]`, false, int64(20)).
			AddRow("p-1", "s", "0xabc", "0xdef", 0.1, "ETH", int64(1), true, "medium", `[]`, `["w"]`, true, int64(10)))

	repo := NewSQLPreviewRepositoryWithDB(db)
	list, err := repo.ListByAddress(context.Background(), "0xabc", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].Success)
	assert.Equal(t, []string{"Saldo tidak cukup"}, list[0].Issues)
	assert.True(t, list[1].DoubleConfirm)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAppliesPendingFiles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	files, err := migrations.Load()
	require.NoError(t, err)
	require.NotEmpty(t, files)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS nova_schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM nova_schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	var want []string
	for _, f := range files {
		mock.ExpectBegin()
		for _, stmt := range f.Statements {
			mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
		}
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO nova_schema_migrations")).
			WithArgs(f.Version, f.Name, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
		want = append(want, f.Version)
	}

	applied, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, want, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateSkipsAppliedVersions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS nova_schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM nova_schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("0001"))

	applied, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRollsBackFailedStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := loadMigrations
	loadMigrations = func() ([]migrations.Migration, error) {
		return []migrations.Migration{
			{Version: "0001", Name: "0001_ok.sql", Statements: []string{"CREATE TABLE a (x INT)"}},
			{Version: "0002", Name: "0002_bad.sql", Statements: []string{"CREATE TABLE b (y INT)"}},
		}, nil
	}
	defer func() { loadMigrations = orig }()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS nova_schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM nova_schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a (x INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO nova_schema_migrations")).
		WithArgs("0001", "0001_ok.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (y INT)")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0002_bad.sql")
	assert.Equal(t, []string{"0001"}, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}
