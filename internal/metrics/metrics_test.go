package metrics

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMetricsSummary(t *testing.T) {
	sink := NewSink()
	sink.Record(Metric{Operation: OperationRead, Success: true, RTTMs: 5, Outcome: OutcomeSuccess})
	sink.Record(Metric{Operation: OperationRead, Success: true, RTTMs: 10, Outcome: OutcomeSuccess})
	sink.Record(Metric{Operation: OperationReadFragmented, Success: true, RTTMs: 2, Outcome: OutcomeRetry})
	sink.Record(Metric{Operation: OperationWrite, Success: false, Error: "timeout", Outcome: OutcomeTimeout})

	summary := sink.GetSummary()
	if summary.TotalOperations != 4 {
		t.Fatalf("expected total ops 4, got %d", summary.TotalOperations)
	}
	if summary.SuccessfulOps != 3 || summary.FailedOps != 1 {
		t.Fatalf("unexpected success/fail counts: %d/%d", summary.SuccessfulOps, summary.FailedOps)
	}
	if summary.TimeoutCount != 1 || summary.RetryCount != 1 {
		t.Fatalf("timeouts=%d retries=%d", summary.TimeoutCount, summary.RetryCount)
	}
	if summary.MinRTT != 2 || summary.MaxRTT != 10 {
		t.Errorf("min/max RTT = %v/%v", summary.MinRTT, summary.MaxRTT)
	}
	if summary.P50RTT != 5 || summary.P99RTT != 10 {
		t.Errorf("P50/P99 = %v/%v", summary.P50RTT, summary.P99RTT)
	}
	if summary.RTTBuckets["5_10ms"] != 1 || summary.RTTBuckets["10_50ms"] != 1 || summary.RTTBuckets["1_5ms"] != 1 {
		t.Errorf("buckets = %v", summary.RTTBuckets)
	}
	read := summary.RTTByOperation[OperationRead]
	if read == nil || read.Count != 2 || read.AvgRTT != 7.5 {
		t.Errorf("read stats = %+v", read)
	}
	if len(sink.GetMetrics()) != 4 {
		t.Errorf("GetMetrics returned %d", len(sink.GetMetrics()))
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.csv")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := &Recorder{Sink: NewSink(), Writer: w}
	if err := rec.Record(Metric{Timestamp: start, Operation: OperationRead, Target: "N7:0", Command: "SendUnitData", Service: "0x4B", Success: true, RTTMs: 1.5, Outcome: OutcomeSuccess}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := rec.Record(Metric{Timestamp: start.Add(time.Second), Operation: OperationWrite, Target: "N7:1", Status: 8, Outcome: OutcomeError, Error: "Service not supported"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, first, last, err := ReadMetricsCSV(path)
	if err != nil {
		t.Fatalf("ReadMetricsCSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows", len(got))
	}
	if !first.Equal(start) || !last.Equal(start.Add(time.Second)) {
		t.Errorf("time range %v..%v", first, last)
	}
	if got[0].Target != "N7:0" || got[0].RTTMs != 1.5 || !got[0].Success || got[0].Service != "0x4B" {
		t.Errorf("row 0 = %+v", got[0])
	}
	if got[1].Status != 8 || got[1].Error != "Service not supported" || got[1].Success {
		t.Errorf("row 1 = %+v", got[1])
	}
	if n := len(rec.Sink.GetMetrics()); n != 2 {
		t.Errorf("sink holds %d metrics", n)
	}
}

func TestReadMetricsErrors(t *testing.T) {
	if _, _, _, err := readMetrics(strings.NewReader("timestamp,operation\n")); err == nil {
		t.Error("missing columns accepted")
	}
	if _, _, _, err := readMetrics(strings.NewReader("timestamp,operation,success,rtt_ms\n")); err == nil {
		t.Error("empty file accepted")
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	if err := r.Record(Metric{}); err != nil {
		t.Errorf("nil recorder: %v", err)
	}
}

func TestFormatSummary(t *testing.T) {
	sink := NewSink()
	sink.Record(Metric{Operation: OperationRead, Success: true, RTTMs: 3})
	sink.Record(Metric{Operation: OperationWrite, Success: false, Outcome: OutcomeTransport})
	out := FormatSummary(sink.GetSummary())
	for _, want := range []string{"Total Exchanges: 2", "Transport Errors: 1", "READ: 1 ops (1 success, 0 failed)", "WRITE: 1 ops (0 success, 1 failed)"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if FormatSummary(NewSink().GetSummary()) != "Total Exchanges: 0\n" {
		t.Error("empty summary should only report the total")
	}
}
