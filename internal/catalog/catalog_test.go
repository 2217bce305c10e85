package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_JSONArray(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "syms.json", `["BTCUSDT","ETHUSDT","ADAUSDT"]`)

	cat, err := Load("Binance", path, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
	assert.Equal(t, [][]string{{"BTCUSDT", "ETHUSDT"}, {"ADAUSDT"}}, cat.Chunks())
}

func TestLoad_LineSeparated(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "syms.txt", "BTC-USD\nETH-USD\n\nADA-USD\n")

	cat, err := Load("Coinbase", path, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())
	assert.Equal(t, []string{"BTC-USD", "ETH-USD", "ADA-USD"}, cat.Chunks()[0])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("Kraken", "/nonexistent/path.txt", 10)
	assert.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.json", `["BTC"`)

	_, err := Load("OKX", path, 10)
	assert.Error(t, err)
}

func TestLoadMulti_OneChunkPerFile(t *testing.T) {
	dir := t.TempDir()
	p1 := writeFile(t, dir, "chunk_1.txt", "BTCUSDT\nETHUSDT\n")
	p2 := writeFile(t, dir, "chunk_2.txt", "ADAUSDT\n")

	cat, err := LoadMulti("Huobi", []string{p1, p2})
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cat.Chunks()[0])
	assert.Equal(t, []string{"ADAUSDT"}, cat.Chunks()[1])
}

func TestChunk_Sizes(t *testing.T) {
	tokens := []string{"a", "b", "c", "d", "e"}
	chunks := chunk(tokens, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunks)
}
