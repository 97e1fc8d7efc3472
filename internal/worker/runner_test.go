package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Brownie44l1/stethoscope-api/internal/model"
)

type blockingPredictor struct {
	release chan struct{}
	started chan string

	mu      sync.Mutex
	order   []string
	active  int32
	overlap int32
}

func newBlockingPredictor() *blockingPredictor {
	return &blockingPredictor{
		release: make(chan struct{}),
		started: make(chan string, 16),
	}
}

func (p *blockingPredictor) Predict(path string) model.Result {
	if atomic.AddInt32(&p.active, 1) > 1 {
		atomic.StoreInt32(&p.overlap, 1)
	}
	p.started <- path
	<-p.release
	atomic.AddInt32(&p.active, -1)

	p.mu.Lock()
	p.order = append(p.order, path)
	p.mu.Unlock()
	return model.Result{Outcome: model.OutcomeClassified, Label: path}
}

type instantPredictor struct{}

func (instantPredictor) Predict(path string) model.Result {
	return model.Result{Outcome: model.OutcomeLowConfidence, Label: model.LabelUnknown, Confidence: 0.4}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunnerDeliversResult(t *testing.T) {
	r := NewRunner(instantPredictor{}, 1, quietLogger(), nil)
	defer r.Close()

	res, err := r.Run(context.Background(), "a.wav")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Outcome != model.OutcomeLowConfidence || res.Confidence != 0.4 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRunnerOneJobAtATime(t *testing.T) {
	p := newBlockingPredictor()
	r := NewRunner(p, 4, quietLogger(), nil)
	defer r.Close()

	paths := []string{"1.wav", "2.wav", "3.wav"}
	var chans []<-chan model.Result
	for _, path := range paths {
		ch, err := r.Submit(context.Background(), path)
		if err != nil {
			t.Fatalf("Submit(%s) failed: %v", path, err)
		}
		chans = append(chans, ch)
	}

	for i, ch := range chans {
		if got := <-p.started; got != paths[i] {
			t.Fatalf("job %d started %s, want %s", i, got, paths[i])
		}
		select {
		case <-p.started:
			t.Fatal("second job started while first was running")
		case <-time.After(20 * time.Millisecond):
		}
		p.release <- struct{}{}

		res := <-ch
		if res.Label != paths[i] {
			t.Errorf("job %d got result for %s", i, res.Label)
		}
	}

	if atomic.LoadInt32(&p.overlap) != 0 {
		t.Error("jobs overlapped")
	}
}

func TestRunnerQueueFull(t *testing.T) {
	p := newBlockingPredictor()
	r := NewRunner(p, 1, quietLogger(), nil)
	defer func() {
		close(p.release)
		r.Close()
	}()

	if _, err := r.Submit(context.Background(), "running.wav"); err != nil {
		t.Fatal(err)
	}
	<-p.started

	if _, err := r.Submit(context.Background(), "queued.wav"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Submit(context.Background(), "rejected.wav"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestRunnerAbandonedJobCompletes(t *testing.T) {
	p := newBlockingPredictor()
	r := NewRunner(p, 2, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := r.Run(ctx, "slow.wav")
		errc <- err
	}()

	<-p.started
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The abandoned job still finishes and the runner keeps working.
	p.release <- struct{}{}
	ch, err := r.Submit(context.Background(), "next.wav")
	if err != nil {
		t.Fatal(err)
	}
	<-p.started
	p.release <- struct{}{}
	if res := <-ch; res.Label != "next.wav" {
		t.Errorf("unexpected result %+v", res)
	}

	r.Close()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) != 2 || p.order[0] != "slow.wav" {
		t.Errorf("expected slow.wav to complete first, got %v", p.order)
	}
}

func TestRunnerClosed(t *testing.T) {
	r := NewRunner(instantPredictor{}, 1, quietLogger(), nil)
	r.Close()
	r.Close()

	if _, err := r.Submit(context.Background(), "a.wav"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestRunnerCancelledContext(t *testing.T) {
	r := NewRunner(instantPredictor{}, 1, quietLogger(), nil)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Submit(ctx, "a.wav"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
