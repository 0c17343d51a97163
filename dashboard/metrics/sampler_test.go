package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trino-compare/dashboard/types"
)

func TestSamplerCollectsSamples(t *testing.T) {
	sampler, err := NewSampler(10 * time.Millisecond)
	require.NoError(t, err)

	sampler.Start()
	time.Sleep(60 * time.Millisecond)
	sampler.Stop()

	samples := sampler.Samples()
	require.NotEmpty(t, samples)
	assert.Greater(t, sampler.PeakRSSMB(), 0.0)

	avg := sampler.Average()
	assert.Greater(t, avg.ProcessRSSMB, 0.0)
}

func TestSamplerStartResetsSamples(t *testing.T) {
	sampler, err := NewSampler(10 * time.Millisecond)
	require.NoError(t, err)

	sampler.Start()
	time.Sleep(30 * time.Millisecond)
	sampler.Stop()
	require.NotEmpty(t, sampler.Samples())

	// A fresh Start discards the previous run's samples.
	sampler.Start()
	sampler.Stop()
	assert.Empty(t, sampler.Samples())
}

func TestSamplerIdempotentStartStop(t *testing.T) {
	sampler, err := NewSampler(10 * time.Millisecond)
	require.NoError(t, err)

	sampler.Start()
	sampler.Start()
	sampler.Stop()
	sampler.Stop()
}

func TestSamplerAverageEmpty(t *testing.T) {
	sampler, err := NewSampler(time.Second)
	require.NoError(t, err)
	assert.Equal(t, types.SystemSample{}, sampler.Average())
}
