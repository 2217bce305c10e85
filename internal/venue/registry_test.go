package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults_CoverAllSixVenues(t *testing.T) {
	names := map[string]bool{}
	for _, spec := range Defaults {
		names[spec.Name] = true
		assert.NotEmpty(t, spec.WSURL, "venue %s needs a WSURL", spec.Name)
		assert.NotNil(t, spec.Builder, "venue %s needs a Builder", spec.Name)
		assert.NotNil(t, spec.Parser, "venue %s needs a Parser", spec.Name)
	}
	for _, want := range []string{"Binance", "Coinbase", "Kraken", "Bitfinex", "Huobi", "OKX"} {
		assert.True(t, names[want], "missing venue spec %s", want)
	}
}

func TestKraken_HasPreSubscribeDelay(t *testing.T) {
	for _, spec := range Defaults {
		if spec.Name == "Kraken" {
			assert.Equal(t, 200, spec.PreSubscribeDelayMS)
			return
		}
	}
	t.Fatal("Kraken spec not found")
}

func TestHuobi_NeedsGzip(t *testing.T) {
	for _, spec := range Defaults {
		if spec.Name == "Huobi" {
			assert.True(t, spec.NeedsGzip)
			return
		}
	}
	t.Fatal("Huobi spec not found")
}
