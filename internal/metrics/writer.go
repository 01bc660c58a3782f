package metrics

// Metrics CSV output and summary formatting

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

var csvHeader = []string{
	"timestamp",
	"operation",
	"target",
	"command",
	"service",
	"success",
	"rtt_ms",
	"status",
	"outcome",
	"error",
}

// Writer streams metrics to a CSV file, one row per exchange.
type Writer struct {
	file      io.Closer
	csvWriter *csv.Writer
}

// NewWriter creates the CSV file at csvPath and writes the header.
func NewWriter(csvPath string) (*Writer, error) {
	file, err := os.Create(csvPath)
	if err != nil {
		return nil, fmt.Errorf("create CSV file: %w", err)
	}
	w, err := newWriter(file, file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func newWriter(out io.Writer, closer io.Closer) (*Writer, error) {
	w := &Writer{file: closer, csvWriter: csv.NewWriter(out)}
	if err := w.csvWriter.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write CSV header: %w", err)
	}
	w.csvWriter.Flush()
	return w, w.csvWriter.Error()
}

// WriteMetric writes a single metric
func (w *Writer) WriteMetric(m Metric) error {
	record := []string{
		m.Timestamp.Format(time.RFC3339Nano),
		string(m.Operation),
		m.Target,
		m.Command,
		m.Service,
		fmt.Sprintf("%t", m.Success),
		formatRTT(m.RTTMs),
		fmt.Sprintf("%d", m.Status),
		m.Outcome,
		m.Error,
	}
	if err := w.csvWriter.Write(record); err != nil {
		return fmt.Errorf("write CSV record: %w", err)
	}
	w.csvWriter.Flush()
	return w.csvWriter.Error()
}

// Close flushes and closes the writer
func (w *Writer) Close() error {
	w.csvWriter.Flush()
	flushErr := w.csvWriter.Error()
	if w.file == nil {
		return flushErr
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return flushErr
}

// Recorder records each metric into a Sink and, when set, a Writer.
type Recorder struct {
	Sink   *Sink
	Writer *Writer
}

// Record stores m. Write failures are returned; the sink always receives m.
func (r *Recorder) Record(m Metric) error {
	if r == nil {
		return nil
	}
	if r.Sink != nil {
		r.Sink.Record(m)
	}
	if r.Writer != nil {
		return r.Writer.WriteMetric(m)
	}
	return nil
}

// formatRTT formats RTT value for CSV (empty string if 0)
func formatRTT(rtt float64) string {
	if rtt == 0 {
		return ""
	}
	return fmt.Sprintf("%.3f", rtt)
}

// FormatSummary formats a summary for human-readable output
func FormatSummary(summary *Summary) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Total Exchanges: %d\n", summary.TotalOperations)
	if summary.TotalOperations == 0 {
		return buf.String()
	}
	fmt.Fprintf(&buf, "Successful: %d (%.1f%%)\n",
		summary.SuccessfulOps,
		float64(summary.SuccessfulOps)/float64(summary.TotalOperations)*100)
	fmt.Fprintf(&buf, "Failed: %d (%.1f%%)\n",
		summary.FailedOps,
		float64(summary.FailedOps)/float64(summary.TotalOperations)*100)

	if summary.RetryCount > 0 {
		fmt.Fprintf(&buf, "Fragment Retries: %d\n", summary.RetryCount)
	}
	if summary.TimeoutCount > 0 {
		fmt.Fprintf(&buf, "Timeouts: %d\n", summary.TimeoutCount)
	}
	if summary.TransportErrors > 0 {
		fmt.Fprintf(&buf, "Transport Errors: %d\n", summary.TransportErrors)
	}

	if summary.SuccessfulOps > 0 {
		buf.WriteString("\nRTT Statistics:\n")
		fmt.Fprintf(&buf, "  Min: %.3f ms\n", summary.MinRTT)
		fmt.Fprintf(&buf, "  Max: %.3f ms\n", summary.MaxRTT)
		fmt.Fprintf(&buf, "  Avg: %.3f ms\n", summary.AvgRTT)
		if summary.P50RTT > 0 {
			fmt.Fprintf(&buf, "  P50: %.3f ms\n", summary.P50RTT)
			fmt.Fprintf(&buf, "  P90: %.3f ms\n", summary.P90RTT)
			fmt.Fprintf(&buf, "  P95: %.3f ms\n", summary.P95RTT)
			fmt.Fprintf(&buf, "  P99: %.3f ms\n", summary.P99RTT)
		}
		if len(summary.RTTBuckets) > 0 {
			fmt.Fprintf(&buf, "  Buckets: <1ms=%d 1-5ms=%d 5-10ms=%d 10-50ms=%d 50-100ms=%d 100-500ms=%d >500ms=%d\n",
				summary.RTTBuckets["lt_1ms"],
				summary.RTTBuckets["1_5ms"],
				summary.RTTBuckets["5_10ms"],
				summary.RTTBuckets["10_50ms"],
				summary.RTTBuckets["50_100ms"],
				summary.RTTBuckets["100_500ms"],
				summary.RTTBuckets["gt_500ms"],
			)
		}
	}

	if len(summary.RTTByOperation) > 0 {
		buf.WriteString("\nPer-Operation Statistics:\n")
		ops := make([]string, 0, len(summary.RTTByOperation))
		for op := range summary.RTTByOperation {
			ops = append(ops, string(op))
		}
		sort.Strings(ops)
		for _, op := range ops {
			stats := summary.RTTByOperation[OperationType(op)]
			fmt.Fprintf(&buf, "  %s: %d ops (%d success, %d failed)",
				op, stats.Count, stats.Success, stats.Failed)
			if stats.Success > 0 && stats.SumRTT > 0 {
				fmt.Fprintf(&buf, " - RTT: min=%.3fms, max=%.3fms, avg=%.3fms",
					stats.MinRTT, stats.MaxRTT, stats.AvgRTT)
			}
			buf.WriteString("\n")
		}
	}

	return buf.String()
}
