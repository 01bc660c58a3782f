package app

import (
	"context"
	"errors"
	"time"

	"github.com/tturner/cipmsg/internal/logging"
)

// TagReader is the part of the client a poll loop needs.
type TagReader interface {
	ReadTag(ctx context.Context, address string, n int) ([]any, error)
}

// PollOptions controls a polling loop. The loop ends after Loops rounds
// when Loops > 0, after Duration when Duration > 0, or when ctx is done.
type PollOptions struct {
	Addresses []string
	Count     int
	Interval  time.Duration
	Loops     int
	Duration  time.Duration
}

// PollResult is the outcome of one read in a polling round.
type PollResult struct {
	Loop    int
	Address string
	Values  []any
	Err     error
	RTT     time.Duration
}

// Poll reads every address once per round, waiting Interval between rounds.
// Read errors are reported through onRead and do not stop the loop.
// It returns the number of completed rounds.
func Poll(ctx context.Context, r TagReader, opts PollOptions, logger *logging.Logger, onRead func(PollResult)) (int, error) {
	if len(opts.Addresses) == 0 {
		return 0, errors.New("poll: no addresses")
	}
	count := opts.Count
	if count < 1 {
		count = 1
	}
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	logger.Verbose("Polling %d address(es) every %v", len(opts.Addresses), opts.Interval)
	start := time.Now()
	loops := 0
	for opts.Loops == 0 || loops < opts.Loops {
		for _, address := range opts.Addresses {
			if ctx.Err() != nil {
				return loops, stopErr(ctx)
			}
			begin := time.Now()
			values, err := r.ReadTag(ctx, address, count)
			if err != nil && ctx.Err() != nil {
				return loops, stopErr(ctx)
			}
			if onRead != nil {
				onRead(PollResult{Loop: loops + 1, Address: address, Values: values, Err: err, RTT: time.Since(begin)})
			}
		}
		loops++

		if opts.Loops != 0 && loops >= opts.Loops {
			break
		}
		select {
		case <-ctx.Done():
			return loops, stopErr(ctx)
		case <-time.After(opts.Interval):
		}
	}
	logger.Info("Polling completed: %d rounds in %v", loops, time.Since(start).Round(time.Millisecond))
	return loops, nil
}

// stopErr treats the end of the configured duration as a normal stop.
func stopErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil
	}
	return ctx.Err()
}
