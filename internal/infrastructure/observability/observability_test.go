package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "defaults", level: "", format: ""},
		{name: "json debug", level: "debug", format: "json"},
		{name: "console error", level: "error", format: "console"},
		{name: "bad level", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger, err := NewLogger("error", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(2))
}

func TestCollector(t *testing.T) {
	c := NewCollector("roots")
	// Collectors do not share registries.
	other := NewCollector("roots")
	assert.NotSame(t, c.Registry(), other.Registry())

	c.ObserveStore("sqlite", "write_person", OutcomeSuccess, 10*time.Millisecond)
	c.ObserveStore("sqlite", "write_person", OutcomeSuccess, 20*time.Millisecond)
	c.ObserveStore("sqlite", "load_all", OutcomeError, time.Millisecond)
	c.ObserveLoad("sqlite", 3, 4)
	c.ObserveBreaker("sqlite", "closed", "open")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.StoreOperations.WithLabelValues("sqlite", "write_person", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StoreOperations.WithLabelValues("sqlite", "load_all", OutcomeError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.RecordsLoaded.WithLabelValues("sqlite", "person")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.RecordsLoaded.WithLabelValues("sqlite", "edge")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BreakerTransitions.WithLabelValues("sqlite", "closed", "open")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.StoreDuration))
	assert.Zero(t, testutil.ToFloat64(other.StoreOperations.WithLabelValues("sqlite", "write_person", OutcomeSuccess)))
}
