package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbedded(t *testing.T) {
	got, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "0001", got[0].Version)
	assert.Contains(t, got[0].Statements[0], "CREATE TABLE IF NOT EXISTS preview_audit")
}

func TestLoadOrdersAndSkipsEmpty(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_index.sql":   {Data: []byte("-- add index\nCREATE INDEX idx ON t (a);")},
		"0001_init.sql":    {Data: []byte("CREATE TABLE t (a INT);\nCREATE TABLE u (b INT);")},
		"0003_noop.sql":    {Data: []byte("-- nothing yet\n")},
		"README.md":        {Data: []byte("not sql;")},
		"archive/0000.sql": {Data: []byte("DROP TABLE t;")},
	}
	got, err := load(fsys)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0001_init.sql", got[0].Name)
	assert.Equal(t, []string{"CREATE TABLE t (a INT)", "CREATE TABLE u (b INT)"}, got[0].Statements)
	assert.Equal(t, []string{"CREATE INDEX idx ON t (a)"}, got[1].Statements)
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "0001", Version("0001_create_preview_audit.sql"))
	assert.Equal(t, "0002", Version("0002.sql"))
	assert.Equal(t, "init", Version("init"))
}
