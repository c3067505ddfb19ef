// Package fanout runs one function per key concurrently and hands the
// results back in key order.
//
// Workers never share mutable state: each one sends its Result on a channel
// and a single collector places it by input index, so completion order has
// no effect on the returned slice.
package fanout

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Func produces the value for one key.
type Func[T any] func(ctx context.Context, key string) (T, error)

// Result is the outcome for the key at Index.
type Result[T any] struct {
	Index int
	Key   string
	Value T
	Err   error
}

// Options controls a Run.
type Options struct {
	// Limit is the maximum number of keys in flight. Zero or less means
	// every key starts at once.
	Limit int
	// KeepGoing reports failures per key instead of cancelling the run on
	// the first one.
	KeepGoing bool
	// Progress, when set, is called by the collector after each result with
	// the number of finished keys.
	Progress func(done, total int)
}

// KeyError ties a failure to the key that produced it.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// Run calls fn once per key and returns one Result per key, in key order.
//
// Without KeepGoing the first failure cancels the context passed to the
// remaining calls, keys that have not started yet are skipped, and Run
// returns a nil slice with that failure. With KeepGoing every key runs and
// the returned error, if any, aggregates every failure in key order.
func Run[T any](ctx context.Context, keys []string, fn Func[T], opts Options) ([]Result[T], error) {
	results := make([]Result[T], len(keys))
	if len(keys) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if opts.Limit > 0 {
		g.SetLimit(opts.Limit)
	}

	ch := make(chan Result[T])
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		done := 0
		for r := range ch {
			results[r.Index] = r
			done++
			if opts.Progress != nil {
				opts.Progress(done, len(keys))
			}
		}
	}()

	for i, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil && !opts.KeepGoing {
				return err
			}
			v, err := fn(gctx, key)
			if err != nil {
				err = &KeyError{Key: key, Err: err}
			}
			ch <- Result[T]{Index: i, Key: key, Value: v, Err: err}
			if opts.KeepGoing {
				return nil
			}
			return err
		})
	}

	err := g.Wait()
	close(ch)
	<-collected

	if err != nil {
		return nil, err
	}
	if !opts.KeepGoing {
		return results, nil
	}

	var merr *multierror.Error
	for _, r := range results {
		if r.Err != nil {
			merr = multierror.Append(merr, r.Err)
		}
	}
	return results, merr.ErrorOrNil()
}
