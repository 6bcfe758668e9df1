package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/hongminglow/ledger-be/internal/storage"
	"github.com/hongminglow/ledger-be/internal/storage/storagetest"
)

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &storagetest.StoreSuite{
		Open: func() storage.Store {
			store, err := NewStore(filepath.Join(t.TempDir(), "ledger.db"))
			require.NoError(t, err)
			return store
		},
	})
}

func TestMigrationsAreRerunnable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	first, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestFormatTimeSortsLexically(t *testing.T) {
	early := formatTime(mustParse(t, "2024-01-02T03:04:05Z"))
	late := formatTime(mustParse(t, "2024-01-02T03:04:05.5Z"))
	require.Less(t, early, late)

	back, err := parseTime(late)
	require.NoError(t, err)
	require.Equal(t, late, formatTime(back))
}

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339Nano, value)
	require.NoError(t, err)
	return parsed
}
