package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexandreamato/spamanvil/internal/service"
)

type recordingProcessor struct {
	mu    sync.Mutex
	opts  []service.ProcessOptions
	err   error
	ran   chan struct{}
	block chan struct{}
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{ran: make(chan struct{}, 8)}
}

func (p *recordingProcessor) ProcessBatch(_ context.Context, opts service.ProcessOptions) (service.ProcessReport, error) {
	p.mu.Lock()
	p.opts = append(p.opts, opts)
	p.mu.Unlock()
	if p.block != nil {
		<-p.block
	}
	p.ran <- struct{}{}
	if p.err != nil {
		return service.ProcessReport{}, p.err
	}
	return service.ProcessReport{Attempted: 1, Processed: 1}, nil
}

func (p *recordingProcessor) calls() []service.ProcessOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]service.ProcessOptions, len(p.opts))
	copy(out, p.opts)
	return out
}

func waitRan(t *testing.T, p *recordingProcessor) {
	t.Helper()
	select {
	case <-p.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a batch pass")
	}
}

func TestRunnerExecutesTriggeredPass(t *testing.T) {
	proc := newRecordingProcessor()
	r := NewRunner(proc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	if !r.Trigger(service.ProcessOptions{Forced: true}) {
		t.Fatal("trigger rejected on an idle runner")
	}
	waitRan(t, proc)

	calls := proc.calls()
	if len(calls) != 1 || !calls[0].Forced {
		t.Errorf("calls = %+v", calls)
	}
}

func TestRunnerSurvivesPassFailure(t *testing.T) {
	proc := newRecordingProcessor()
	proc.err = errors.New("db down")
	r := NewRunner(proc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.Trigger(service.ProcessOptions{})
	waitRan(t, proc)
	r.Trigger(service.ProcessOptions{})
	waitRan(t, proc)

	if got := len(proc.calls()); got != 2 {
		t.Errorf("passes after failure = %d, want 2", got)
	}
}

func TestRunnerCoalescesPendingTriggers(t *testing.T) {
	proc := newRecordingProcessor()
	proc.block = make(chan struct{})
	r := NewRunner(proc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.Trigger(service.ProcessOptions{})
	// Wait until the pass is actually running so the next trigger fills
	// the single pending slot.
	for len(proc.calls()) == 0 {
		time.Sleep(time.Millisecond)
	}

	if !r.Trigger(service.ProcessOptions{}) {
		t.Fatal("pending slot should accept one trigger")
	}
	if r.Trigger(service.ProcessOptions{}) {
		t.Error("third trigger should coalesce")
	}

	close(proc.block)
	waitRan(t, proc)
	waitRan(t, proc)
}
