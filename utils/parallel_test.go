package utils

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestParallelForRange(t *testing.T) {
	const total = 1000
	var covered [total]int32
	err := ParallelForRange(context.Background(), total, 10, func(_ context.Context, from, to int) error {
		for i := from; i < to; i++ {
			atomic.AddInt32(&covered[i], 1)
		}
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < total; i++ {
		test.That(t, covered[i], test.ShouldEqual, 1)
	}
}

func TestParallelForRangeSerial(t *testing.T) {
	var calls int
	err := ParallelForRange(context.Background(), 100, 0, func(_ context.Context, from, to int) error {
		calls++
		test.That(t, from, test.ShouldEqual, 0)
		test.That(t, to, test.ShouldEqual, 100)
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calls, test.ShouldEqual, 1)

	// A grain at least as large as the range also runs in one call.
	calls = 0
	err = ParallelForRange(context.Background(), 5, 10, func(_ context.Context, _, _ int) error {
		calls++
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calls, test.ShouldEqual, 1)

	test.That(t, ParallelForRange(context.Background(), 0, 10, nil), test.ShouldBeNil)
}

func TestParallelForRangeError(t *testing.T) {
	boom := errors.New("boom")
	err := ParallelForRange(context.Background(), 100, 1, func(_ context.Context, from, _ int) error {
		if from == 0 {
			return boom
		}
		return nil
	})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRunInParallel(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]bool{}
	fns := make([]SimpleFunc, 0, 4)
	for i := 0; i < 4; i++ {
		iCopy := i
		fns = append(fns, func(_ context.Context) error {
			mu.Lock()
			seen[iCopy] = true
			mu.Unlock()
			return nil
		})
	}
	_, err := RunInParallel(context.Background(), fns)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(seen), test.ShouldEqual, 4)
}

func TestGetInParallel(t *testing.T) {
	fns := []FloatFunc{
		func(_ context.Context) (float64, error) { return 1.5, nil },
		func(_ context.Context) (float64, error) { return 2.5, nil },
	}
	_, vals, err := GetInParallel(context.Background(), fns)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, vals, test.ShouldResemble, []float64{1.5, 2.5})
}

func TestFlagInterrupter(t *testing.T) {
	var f FlagInterrupter
	f.Start("test op")
	test.That(t, f.WasInterrupted(50), test.ShouldBeFalse)
	f.Interrupt()
	test.That(t, f.WasInterrupted(75), test.ShouldBeTrue)
	f.End()

	var n NullInterrupter
	n.Start("noop")
	test.That(t, n.WasInterrupted(10), test.ShouldBeFalse)
	n.End()
}
