package supervisor

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/marketfeed/internal/ledger"
	"github.com/sawpanic/marketfeed/internal/metrics"
)

type fakeReconnector struct {
	mu        sync.Mutex
	requested []string
	venues    map[string]string
}

func (f *fakeReconnector) RequestReconnect(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, key)
}

func (f *fakeReconnector) VenueForKey(key string) string {
	return f.venues[key]
}

func (f *fakeReconnector) wasRequested(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.requested {
		if k == key {
			return true
		}
	}
	return false
}

func newTestSupervisor(keys []string, venues map[string]string) (*Supervisor, *ledger.Ledger, *fakeReconnector) {
	led := ledger.New(keys)
	reconnector := &fakeReconnector{venues: venues}
	reg := metrics.New(prometheus.NewRegistry())
	return New(led, reconnector, reg), led, reconnector
}

func TestScan_SkipsSessionsThatNeverReceivedAMessage(t *testing.T) {
	s, _, reconnector := newTestSupervisor([]string{"Binance#0"}, map[string]string{"Binance#0": "Binance"})
	s.scan()
	assert.False(t, reconnector.wasRequested("Binance#0"))
}

func TestScan_FiresReconnectWhenStalled(t *testing.T) {
	s, led, reconnector := newTestSupervisor([]string{"Kraken#0"}, map[string]string{"Kraken#0": "Kraken"})
	entry := led.Get("Kraken#0")
	entry.RecordMessage(time.Now().Add(-(NoDataTimeout + time.Second)))

	s.scan()

	assert.True(t, reconnector.wasRequested("Kraken#0"))
}

func TestScan_DoesNotRefireOnImmediateNextScan(t *testing.T) {
	s, led, reconnector := newTestSupervisor([]string{"Kraken#0"}, map[string]string{"Kraken#0": "Kraken"})
	entry := led.Get("Kraken#0")
	entry.RecordMessage(time.Now().Add(-(NoDataTimeout + time.Second)))

	s.scan()
	assert.True(t, reconnector.wasRequested("Kraken#0"))

	reconnector.requested = nil
	s.scan()
	assert.False(t, reconnector.wasRequested("Kraken#0"))
}

func TestScan_LeavesFreshSessionsAlone(t *testing.T) {
	s, led, reconnector := newTestSupervisor([]string{"OKX#0"}, map[string]string{"OKX#0": "OKX"})
	led.Get("OKX#0").RecordMessage(time.Now())

	s.scan()

	assert.False(t, reconnector.wasRequested("OKX#0"))
}
