package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeReader struct {
	reads  []string
	failOn string
	cancel context.CancelFunc
	stopAt int
}

func (f *fakeReader) ReadTag(_ context.Context, address string, n int) ([]any, error) {
	f.reads = append(f.reads, address)
	if f.cancel != nil && len(f.reads) == f.stopAt {
		f.cancel()
	}
	if address == f.failOn {
		return nil, errors.New("processor error")
	}
	values := make([]any, n)
	for i := range values {
		values[i] = int16(i)
	}
	return values, nil
}

func TestPollLoops(t *testing.T) {
	r := &fakeReader{failOn: "N7:9"}
	var results []PollResult
	loops, err := Poll(context.Background(), r, PollOptions{
		Addresses: []string{"N7:0", "N7:9"},
		Count:     2,
		Loops:     3,
		Interval:  time.Millisecond,
	}, nil, func(res PollResult) { results = append(results, res) })
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if loops != 3 || len(results) != 6 {
		t.Fatalf("loops=%d results=%d, want 3 and 6", loops, len(results))
	}
	if results[0].Address != "N7:0" || len(results[0].Values) != 2 || results[0].Err != nil {
		t.Errorf("first result %+v", results[0])
	}
	if results[1].Err == nil {
		t.Error("failed read should be reported, not dropped")
	}
	if results[5].Loop != 3 {
		t.Errorf("last result loop = %d, want 3", results[5].Loop)
	}
}

func TestPollDuration(t *testing.T) {
	r := &fakeReader{}
	loops, err := Poll(context.Background(), r, PollOptions{
		Addresses: []string{"N7:0"},
		Interval:  20 * time.Millisecond,
		Duration:  70 * time.Millisecond,
	}, nil, nil)
	if err != nil {
		t.Fatalf("duration expiry should not be an error: %v", err)
	}
	if loops < 1 || loops > 5 {
		t.Errorf("loops = %d", loops)
	}
}

func TestPollCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{cancel: cancel, stopAt: 2}
	loops, err := Poll(ctx, r, PollOptions{Addresses: []string{"N7:0"}, Interval: time.Millisecond}, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if loops != 2 {
		t.Errorf("loops = %d, want 2", loops)
	}
}

func TestPollNoAddresses(t *testing.T) {
	if _, err := Poll(context.Background(), &fakeReader{}, PollOptions{}, nil, nil); err == nil {
		t.Error("expected an error without addresses")
	}
}
