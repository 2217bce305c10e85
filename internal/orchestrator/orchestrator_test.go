package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketfeed/internal/config"
	"github.com/sawpanic/marketfeed/internal/venue"
)

func TestLoadCatalog_SingleFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "coinbase.txt"), []byte("BTC-USD\nETH-USD\n"), 0o644))

	spec := venue.Spec{Name: "Coinbase", ChunkSize: 100}
	vc := config.VenueConfig{CatalogFiles: []string{"coinbase.txt"}}

	cat, err := LoadCatalog(dir, spec, vc)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())
}

func TestLoadCatalog_GlobExpandsChunkPattern(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "huobi_currency_chunk_1.txt"), []byte("btcusdt\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "huobi_currency_chunk_2.txt"), []byte("ethusdt\n"), 0o644))

	spec := venue.Spec{Name: "Huobi", ChunkSize: 1}
	vc := config.VenueConfig{CatalogFiles: []string{"huobi_currency_chunk_{N}.txt"}}

	cat, err := LoadCatalog(dir, spec, vc)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
}

func TestLoadCatalog_NoFilesResolvedErrors(t *testing.T) {
	dir := t.TempDir()
	spec := venue.Spec{Name: "OKX", ChunkSize: 1}
	vc := config.VenueConfig{CatalogFiles: []string{"okx_currency_chunk_{N}.txt"}}

	_, err := LoadCatalog(dir, spec, vc)
	assert.Error(t, err)
}
