package metrics

// Metrics collection for request/reply exchanges

import (
	"math"
	"sort"
	"sync"
	"time"
)

// OperationType represents the client operation an exchange belonged to
type OperationType string

const (
	OperationRegisterSession   OperationType = "REGISTER_SESSION"
	OperationUnregisterSession OperationType = "UNREGISTER_SESSION"
	OperationForwardOpen       OperationType = "FORWARD_OPEN"
	OperationForwardClose      OperationType = "FORWARD_CLOSE"
	OperationGeneric           OperationType = "GENERIC"
	OperationRead              OperationType = "READ"
	OperationWrite             OperationType = "WRITE"
	OperationReadFragmented    OperationType = "READ_FRAGMENTED"
	OperationTagList           OperationType = "TAG_LIST"
	OperationEcho              OperationType = "ECHO"
)

// Outcome labels recorded per exchange.
const (
	OutcomeSuccess   = "success"
	OutcomeRetry     = "retry"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
	OutcomeTransport = "transport"
)

// Metric represents a single exchange
type Metric struct {
	Timestamp time.Time
	Operation OperationType
	Target    string
	Command   string
	Service   string
	Success   bool
	RTTMs     float64
	Status    uint8
	Outcome   string
	Error     string
}

// Sink is a concurrency-safe store of exchange metrics.
type Sink struct {
	mu      sync.RWMutex
	metrics []Metric
}

// RTTStats accumulates round-trip times in milliseconds.
type RTTStats struct {
	MinRTT float64
	MaxRTT float64
	AvgRTT float64
	SumRTT float64
	n      int
}

func (r *RTTStats) observe(ms float64) {
	if r.n == 0 || ms < r.MinRTT {
		r.MinRTT = ms
	}
	r.MaxRTT = math.Max(r.MaxRTT, ms)
	r.n++
	r.SumRTT += ms
	r.AvgRTT = r.SumRTT / float64(r.n)
}

// Summary is the aggregate view over a set of metrics. RTT figures only
// count successful exchanges.
type Summary struct {
	TotalOperations int
	SuccessfulOps   int
	FailedOps       int
	RetryCount      int
	TimeoutCount    int
	TransportErrors int
	RTTStats
	P50RTT         float64
	P90RTT         float64
	P95RTT         float64
	P99RTT         float64
	RTTBuckets     map[string]int
	RTTByOperation map[OperationType]*OperationStats
}

// OperationStats is the per-operation slice of a Summary.
type OperationStats struct {
	Count   int
	Success int
	Failed  int
	RTTStats
}

// rttBuckets are histogram bins keyed by their exclusive upper bound.
var rttBuckets = []struct {
	limit float64
	name  string
}{
	{1, "lt_1ms"},
	{5, "1_5ms"},
	{10, "5_10ms"},
	{50, "10_50ms"},
	{100, "50_100ms"},
	{500, "100_500ms"},
	{math.Inf(1), "gt_500ms"},
}

func bucketName(ms float64) string {
	for _, b := range rttBuckets {
		if ms < b.limit {
			return b.name
		}
	}
	return rttBuckets[len(rttBuckets)-1].name
}

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Record appends m.
func (s *Sink) Record(m Metric) {
	s.mu.Lock()
	s.metrics = append(s.metrics, m)
	s.mu.Unlock()
}

// GetMetrics returns a snapshot of everything recorded.
func (s *Sink) GetMetrics() []Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Metric(nil), s.metrics...)
}

// GetSummary aggregates everything recorded so far.
func (s *Sink) GetSummary() *Summary {
	return Summarize(s.GetMetrics())
}

// Summarize aggregates a list of metrics, e.g. one read back from CSV.
func Summarize(metrics []Metric) *Summary {
	summary := &Summary{
		RTTBuckets:     map[string]int{},
		RTTByOperation: map[OperationType]*OperationStats{},
	}
	var timed []float64
	for _, m := range metrics {
		summary.add(m)
		if m.Success && m.RTTMs > 0 {
			timed = append(timed, m.RTTMs)
		}
	}

	sort.Float64s(timed)
	for _, q := range []struct {
		dst *float64
		p   float64
	}{
		{&summary.P50RTT, 0.50},
		{&summary.P90RTT, 0.90},
		{&summary.P95RTT, 0.95},
		{&summary.P99RTT, 0.99},
	} {
		*q.dst = nearestRank(timed, q.p)
	}
	return summary
}

func (s *Summary) add(m Metric) {
	op := s.RTTByOperation[m.Operation]
	if op == nil {
		op = &OperationStats{}
		s.RTTByOperation[m.Operation] = op
	}
	s.TotalOperations++
	op.Count++

	switch m.Outcome {
	case OutcomeRetry:
		s.RetryCount++
	case OutcomeTimeout:
		s.TimeoutCount++
	case OutcomeTransport:
		s.TransportErrors++
	}

	if !m.Success {
		s.FailedOps++
		op.Failed++
		return
	}
	s.SuccessfulOps++
	op.Success++
	if m.RTTMs <= 0 {
		return
	}
	s.observe(m.RTTMs)
	op.observe(m.RTTMs)
	s.RTTBuckets[bucketName(m.RTTMs)]++
}

// nearestRank returns the p-th quantile of sorted values, 0 when empty.
func nearestRank(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(math.Ceil(p*float64(len(sorted)))) - 1
	i = max(0, min(i, len(sorted)-1))
	return sorted[i]
}
