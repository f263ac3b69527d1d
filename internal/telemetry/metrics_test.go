package telemetry

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorsAreNoOps(t *testing.T) {
	var c *Collectors
	c.ObserveLines(10)
	c.ObserveBundle()
	c.ObserveProducerWait()
	c.ObserveSourceError()
	c.SetQueueDepth(3)
	c.ObserveWorkerLines(0, 5)
	c.ObserveRun(time.Second, nil)
}

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollectors(reg)
	require.NoError(t, err)

	c.ObserveLines(7)
	c.ObserveLines(3)
	c.ObserveBundle()
	c.ObserveProducerWait()
	c.SetQueueDepth(4)
	c.ObserveWorkerLines(1, 6)
	c.ObserveRun(time.Millisecond, nil)
	c.ObserveRun(time.Millisecond, errors.New("x"))

	assert.Equal(t, float64(10), testutil.ToFloat64(c.LinesRead))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.BundlesQueued))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.ProducerWaits))
	assert.Equal(t, float64(4), testutil.ToFloat64(c.QueueDepth))
	assert.Equal(t, float64(6), testutil.ToFloat64(c.WorkerLines.WithLabelValues("1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.RunsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.RunsTotal.WithLabelValues("error")))
}

// A second set of collectors on the same registry shares the series.
func TestCollectorsReuseRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewCollectors(reg)
	require.NoError(t, err)
	b, err := NewCollectors(reg)
	require.NoError(t, err)

	a.ObserveLines(2)
	b.ObserveLines(3)
	assert.Equal(t, float64(5), testutil.ToFloat64(a.LinesRead))
	assert.Equal(t, float64(5), testutil.ToFloat64(b.LinesRead))
}

func TestServe(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollectors(reg)
	require.NoError(t, err)
	c.ObserveLines(42)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	errc := make(chan error, 1)
	server := Serve(addr, reg, errc)
	defer server.Close()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, strings.Contains(body, "batchdigest_lines_read_total 42"), body)
}
