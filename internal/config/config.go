// Package config loads marketfeed's YAML configuration from a single
// marketfeed.yaml, overlaying it field by field onto built-in defaults and
// using the defaults alone when the file is absent — the same pattern the
// teacher's datafacade/config loader uses.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// VenueConfig names where a venue's catalog file(s) live on disk.
type VenueConfig struct {
	CatalogFiles []string `yaml:"catalog_files"`
}

// OutputConfig locates the rolling JSON files and the BSON directory.
type OutputConfig struct {
	TickerJSONPath string `yaml:"ticker_json_path"`
	TradeJSONPath  string `yaml:"trade_json_path"`
	BSONDir        string `yaml:"bson_dir"`
}

// HTTPConfig configures the observability surface.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the fully resolved marketfeed configuration.
type Config struct {
	CatalogDir string                 `yaml:"catalog_dir"`
	Output     OutputConfig           `yaml:"output"`
	HTTP       HTTPConfig             `yaml:"http"`
	Venues     map[string]VenueConfig `yaml:"venues"`
}

// Default returns the built-in configuration used when marketfeed.yaml is
// absent or leaves a field unset.
func Default() *Config {
	return &Config{
		CatalogDir: "currency_text_files",
		Output: OutputConfig{
			TickerJSONPath: "ticker_output_data.json",
			TradeJSONPath:  "trades_output_data.json",
			BSONDir:        "bson_output",
		},
		HTTP: HTTPConfig{Addr: ":9090"},
		Venues: map[string]VenueConfig{
			"Binance":  {CatalogFiles: []string{"binance_currency_chunk_trades_{N}.txt"}},
			"Coinbase": {CatalogFiles: []string{"coinbase_currency_ids.txt"}},
			"Kraken":   {CatalogFiles: []string{"kraken_currency_ids.txt"}},
			"Bitfinex": {CatalogFiles: []string{"bitfinex_currency_ids.txt"}},
			"Huobi":    {CatalogFiles: []string{"huobi_currency_chunk_{N}.txt"}},
			"OKX":      {CatalogFiles: []string{"okx_currency_chunk_{N}.txt", "okx_currency_chunk_trades_{N}.txt"}},
		},
	}
}

// Load reads marketfeed.yaml from dir, falling back field-by-field to
// Default() for anything the file omits or that is entirely absent. A
// missing dir is not an error: it simply means "use defaults" (there are
// no required external services to configure).
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, "marketfeed.yaml")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var overlay Config
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if overlay.CatalogDir != "" {
		cfg.CatalogDir = overlay.CatalogDir
	}
	if overlay.Output.TickerJSONPath != "" {
		cfg.Output.TickerJSONPath = overlay.Output.TickerJSONPath
	}
	if overlay.Output.TradeJSONPath != "" {
		cfg.Output.TradeJSONPath = overlay.Output.TradeJSONPath
	}
	if overlay.Output.BSONDir != "" {
		cfg.Output.BSONDir = overlay.Output.BSONDir
	}
	if overlay.HTTP.Addr != "" {
		cfg.HTTP.Addr = overlay.HTTP.Addr
	}
	for name, vc := range overlay.Venues {
		if len(vc.CatalogFiles) > 0 {
			cfg.Venues[name] = vc
		}
	}

	return cfg, nil
}
