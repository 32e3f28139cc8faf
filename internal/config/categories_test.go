package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCategoriesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "categories.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCategories(t *testing.T) {
	path := writeCategoriesFile(t, `
categories:
  - id: 197
    name: "Home & Kitchen"
    marketplace: amazon_fr
    bsr_max: 5000
    price_min: 10
    price_max: 80
    active: true
  - id: 340
    name: "Electronics & Photo"
    marketplace: amazon_fr
    bsr_max: 2000
    price_min: 15
    price_max: 120
    active: false
`)

	cats, err := LoadCategories(path)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Home & Kitchen", cats[0].Name)
	assert.Equal(t, 197, cats[0].ID)
	assert.Equal(t, 5000, cats[0].BSRMax)
}

func TestLoadCategories_Missing(t *testing.T) {
	_, err := LoadCategories(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read categories")
}

func TestLoadCategories_Malformed(t *testing.T) {
	path := writeCategoriesFile(t, "categories: [not: valid: yaml")
	_, err := LoadCategories(path)
	require.Error(t, err)
}
