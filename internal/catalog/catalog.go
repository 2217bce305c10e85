// Package catalog loads per-venue symbol lists from disk and exposes them
// as a sequence of subscription chunks, built in full at load time. Catalogs are read-only after
// load and never validate tokens against any remote source — that is the
// job of the out-of-scope REST prefetcher (spec.md §1).
package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Catalog is one venue's symbol list, partitioned into fixed-size chunks.
type Catalog struct {
	Venue     string
	ChunkSize int
	chunks    [][]string
}

// Chunks returns the venue's symbol list partitioned per ChunkSize.
func (c *Catalog) Chunks() [][]string {
	return c.chunks
}

// Len returns the number of chunks.
func (c *Catalog) Len() int { return len(c.chunks) }

// Load reads path (a JSON array of strings, or a newline-separated token
// list) and partitions it into chunks of chunkSize. A malformed or missing
// file is returned as an error; callers must fail only the affected venue
// and let others proceed (spec.md §4.1, §7).
func Load(venue, path string, chunkSize int) (*Catalog, error) {
	if chunkSize <= 0 {
		chunkSize = 1
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: read %s: %w", venue, path, err)
	}

	tokens, err := parseTokens(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: parse %s: %w", venue, path, err)
	}

	return &Catalog{
		Venue:     venue,
		ChunkSize: chunkSize,
		chunks:    chunk(tokens, chunkSize),
	}, nil
}

// LoadMulti loads every file matched by paths (used for Huobi/OKX/Binance
// chunk files that are already pre-split on disk, e.g.
// huobi_currency_chunk_{N}.txt) and treats each non-empty file as exactly
// one chunk, with no further splitting; a file with no tokens adds no chunk.
func LoadMulti(venue string, paths []string) (*Catalog, error) {
	c := &Catalog{Venue: venue}
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: read %s: %w", venue, path, err)
		}
		tokens, err := parseTokens(raw)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: parse %s: %w", venue, path, err)
		}
		if len(tokens) > 0 {
			c.chunks = append(c.chunks, tokens)
		}
	}
	c.ChunkSize = 0
	return c, nil
}

func parseTokens(raw []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var tokens []string
		if err := json.Unmarshal([]byte(trimmed), &tokens); err != nil {
			return nil, fmt.Errorf("malformed JSON array: %w", err)
		}
		return tokens, nil
	}

	var tokens []string
	scanner := bufio.NewScanner(strings.NewReader(trimmed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

func chunk(tokens []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(tokens); i += size {
		end := i + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[i:end])
	}
	return chunks
}
