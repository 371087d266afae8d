package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/storefront/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add promo codes", "add_promo_codes"},
		{"Add-Promo-Codes", "add_promo_codes"},
		{"ADD_PROMO_CODES", "add_promo_codes"},
		{"add__promo__codes", "add_promo_codes"},
		{"Seed Products 2", "seed_products_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create carts", "Cart archive table")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_create_carts.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_create_carts.down.sql"), first.DownPath)

	content, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- Migration: create carts")
	assert.Contains(t, string(content), "-- Description: Cart archive table")

	second, err := CreateMigration(dir, "add index", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)

	down, err := os.ReadFile(second.DownPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(down), "-- Migration: add index (Rollback)"))
}

func TestCreateMigration_FollowsExistingVersions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000007_existing.up.sql"), []byte("SELECT 1;"), 0644))

	mf, err := CreateMigration(dir, "next", "")
	require.NoError(t, err)
	assert.Equal(t, "000008", mf.Version)
}

func TestCreateMigration_InvalidName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_second.up.sql":   {Data: []byte("")},
		"000001_first.up.sql":    {Data: []byte("")},
		"000001_first.down.sql":  {Data: []byte("")},
		"README.md":              {Data: []byte("")},
		"notaversion_x.up.sql":   {Data: []byte("")},
		"nested/000003_x.up.sql": {Data: []byte("")},
	}

	list, err := ListMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, MigrationInfo{Version: 1, Name: "first", HasDown: true}, list[0])
	assert.Equal(t, MigrationInfo{Version: 2, Name: "second", HasDown: false}, list[1])
	assert.Equal(t, "000002_second", list[1].String())
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	list, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEmbeddedMigrations(t *testing.T) {
	list, err := ListMigrations(migrations.FS)
	require.NoError(t, err)

	names := make([]string, len(list))
	for i, m := range list {
		names[i] = m.String()
		assert.True(t, m.HasDown, "%s has no down migration", m)
	}
	assert.Equal(t, []string{
		"000001_create_products",
		"000002_create_promo_codes",
		"000003_seed_promo_codes",
		"000004_seed_products",
	}, names)
}
