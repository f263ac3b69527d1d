package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"batchdigest"
)

func TestSummary_Print(t *testing.T) {
	s := NewSummary()
	s.SetConfig(batchdigest.Config{Threads: 4, MaxQueueSize: 8, BundleSize: 100, MaxLineBytes: 1024})
	s.Set("command", "count")
	s.SetBool("verbose", false)
	s.SetInt64("histogram_min", -5)

	stats := batchdigest.RunStats{
		RunID:          "run-1",
		Sources:        2,
		Lines:          1000,
		Bundles:        10,
		PeakQueueLen:   3,
		ProducerWaits:  1,
		WorkerLines:    []int64{600, 400},
		SkippedSources: []string{"bad.txt"},
		Elapsed:        time.Second,
	}

	var buf bytes.Buffer
	if err := s.Print(&buf, stats); err != nil {
		t.Fatalf("Print: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Run run-1 finished in 1s",
		"Lines",
		"1000",
		"Worker 1 lines",
		"Skipped sources",
		"bad.txt",
		"queue_order",
		"fifo",
		"histogram_min",
		"-5",
		"verbose",
		"false",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("uncolored summary contains ANSI escapes")
	}
	// Parameters are sorted by name.
	if strings.Index(out, "bundle_size") > strings.Index(out, "threads") {
		t.Errorf("parameters are not sorted:\n%s", out)
	}
}

func TestSummary_Color(t *testing.T) {
	s := NewSummary()
	s.Color = true
	var buf bytes.Buffer
	if err := s.Print(&buf, batchdigest.RunStats{}); err != nil {
		t.Fatalf("Print: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\x1b[33m") || !strings.HasSuffix(out, "\x1b[0m") {
		t.Errorf("colored summary not wrapped in escapes: %q", out)
	}
	if strings.Contains(out, "Configured parameters") {
		t.Errorf("empty summary printed a parameter table")
	}
}

func TestRate(t *testing.T) {
	if got := rate(100, 0); got != "n/a" {
		t.Errorf("rate(100, 0) = %q, want n/a", got)
	}
	if got := rate(500, 2*time.Second); got != "250" {
		t.Errorf("rate(500, 2s) = %q, want 250", got)
	}
}
