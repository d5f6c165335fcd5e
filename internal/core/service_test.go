package core

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/zoltar/internal/eventbus"
	"github.com/Rorical/zoltar/internal/models"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeDispatcher struct {
	results chan models.AnswerResult
	calls   atomic.Int32

	mu    sync.Mutex
	modes []models.Mode
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{results: make(chan models.AnswerResult, 4)}
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, mode models.Mode, query string) models.AnswerResult {
	d.calls.Add(1)
	d.mu.Lock()
	d.modes = append(d.modes, mode)
	d.mu.Unlock()

	select {
	case r := <-d.results:
		return r
	case <-ctx.Done():
		return models.Failed(&models.Failure{Kind: models.TransportFailure, Err: ctx.Err()})
	}
}

type recordingPresenter struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPresenter) record(e string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPresenter) StartThinking() { p.record("start") }
func (p *recordingPresenter) PlayCoin()      { p.record("coin") }

func (p *recordingPresenter) StopThinking(success bool) {
	if success {
		p.record("stop:success")
	} else {
		p.record("stop:silent")
	}
}

func (p *recordingPresenter) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *recordingPresenter) count(prefix string) int {
	n := 0
	for _, e := range p.Events() {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// instantRevealer shows the whole answer in one update
type instantRevealer struct{}

func (instantRevealer) Reveal(ctx context.Context, text string, update func(string)) error {
	update(text)
	return nil
}

// stallingRevealer shows the first character and then waits to be cancelled
type stallingRevealer struct{}

func (stallingRevealer) Reveal(ctx context.Context, text string, update func(string)) error {
	update(string([]rune(text)[:1]))
	<-ctx.Done()
	return ctx.Err()
}

// typingRevealer shows the answer one character at a time
type typingRevealer struct{}

func (typingRevealer) Reveal(ctx context.Context, text string, update func(string)) error {
	runes := []rune(text)
	for i := 1; i <= len(runes); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		update(string(runes[:i]))
	}
	return nil
}

type harness struct {
	svc       *OracleService
	bus       *eventbus.EventBus
	dispatch  *fakeDispatcher
	presenter *recordingPresenter
}

func newHarness(t *testing.T, revealer Revealer) *harness {
	t.Helper()

	h := &harness{
		bus:       eventbus.NewEventBus(),
		dispatch:  newFakeDispatcher(),
		presenter: &recordingPresenter{},
	}
	h.svc = NewOracleService(Deps{
		Dispatcher: h.dispatch,
		Presenter:  h.presenter,
		Revealer:   revealer,
		EventBus:   h.bus,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	// stands in for the UI draining state updates
	go func() {
		for range h.bus.CoreToUI() {
		}
	}()

	h.svc.Start()
	t.Cleanup(func() {
		h.svc.Stop()
		h.bus.Close()
	})
	return h
}

func (h *harness) send(t *testing.T, e eventbus.UIEvent) {
	t.Helper()
	require.NoError(t, h.bus.SendToCore(e))
}

func (h *harness) waitState(t *testing.T, want models.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.svc.Snapshot().State == want
	}, waitFor, tick, "state never reached %s", want)
}

func (h *harness) waitSettledWith(t *testing.T, entries int) []models.Entry {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.svc.Settled() && h.svc.Snapshot().State == models.Idle && h.svc.Log().Len() == entries
	}, waitFor, tick)
	return h.svc.Log().Entries()
}

func types(entries []models.Entry) []models.EntryType {
	out := make([]models.EntryType, len(entries))
	for i, e := range entries {
		out[i] = e.Type
	}
	return out
}

func TestServiceDirectAnswer(t *testing.T) {
	h := newHarness(t, instantRevealer{})

	h.send(t, eventbus.InsertCoinEvent{})
	h.waitState(t, models.Armed)

	h.send(t, eventbus.AskEvent{Query: "What is the river of fire?", Mode: models.Direct})
	h.waitState(t, models.Pending)

	entries := h.svc.Log().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, models.User, entries[0].Type)
	assert.Equal(t, ThinkingText, entries[1].Content)
	assert.True(t, entries[1].Transient)

	h.dispatch.results <- models.Success("It burns eternal.", nil)
	entries = h.waitSettledWith(t, 2)

	assert.Equal(t, []models.EntryType{models.User, models.Oracle}, types(entries))
	assert.Equal(t, "It burns eternal.", entries[1].Content)
	for _, e := range entries {
		assert.True(t, e.Finalized())
	}
	assert.Equal(t, []string{"coin", "start", "stop:success"}, h.presenter.Events())
}

func TestServiceGroundedCitations(t *testing.T) {
	h := newHarness(t, instantRevealer{})

	h.send(t, eventbus.InsertCoinEvent{})
	h.send(t, eventbus.AskEvent{Query: "Tell me of the stars", Mode: models.Grounded})
	h.dispatch.results <- models.Success("They are ancient.", []string{"myth-1", "myth-2"})

	entries := h.waitSettledWith(t, 3)
	assert.Equal(t, []models.EntryType{models.User, models.Oracle, models.Citations}, types(entries))
	assert.Equal(t, []string{"myth-1", "myth-2"}, entries[2].Sources)
	assert.Equal(t, []models.Mode{models.Grounded}, h.dispatch.modes)
}

func TestServiceAskWithoutToken(t *testing.T) {
	h := newHarness(t, instantRevealer{})

	h.send(t, eventbus.AskEvent{Query: "Tell me of the stars", Mode: models.Direct})
	// events are handled in order, so reaching Armed means the ask was seen
	h.send(t, eventbus.InsertCoinEvent{})
	h.waitState(t, models.Armed)

	assert.Zero(t, h.dispatch.calls.Load())
	assert.Zero(t, h.svc.Log().Len())
	assert.Zero(t, h.presenter.count("start"))
}

func TestServiceEmptyQueryKeepsToken(t *testing.T) {
	h := newHarness(t, instantRevealer{})

	h.send(t, eventbus.InsertCoinEvent{})
	h.send(t, eventbus.AskEvent{Query: "   "})
	h.send(t, eventbus.AskEvent{Query: "Tell me of the stars"})
	h.dispatch.results <- models.Success("They are ancient.", nil)

	h.waitSettledWith(t, 2)
	assert.Equal(t, int32(1), h.dispatch.calls.Load())
}

func TestServiceTransportFailure(t *testing.T) {
	h := newHarness(t, instantRevealer{})

	h.send(t, eventbus.InsertCoinEvent{})
	h.send(t, eventbus.AskEvent{Query: "q"})
	h.dispatch.results <- models.Failed(&models.Failure{Kind: models.TransportFailure})

	entries := h.waitSettledWith(t, 2)
	assert.Equal(t, []models.EntryType{models.User, models.Error}, types(entries))
	assert.Equal(t, "Could not reach the oracle backend.", entries[1].Content)
	assert.Equal(t, []string{"coin", "start", "stop:silent"}, h.presenter.Events())
	assert.False(t, h.svc.Snapshot().Gate.Held())
}

func TestServiceRequiresFreshToken(t *testing.T) {
	h := newHarness(t, instantRevealer{})

	h.send(t, eventbus.InsertCoinEvent{})
	h.send(t, eventbus.AskEvent{Query: "first"})
	h.dispatch.results <- models.Success("one", nil)
	h.waitSettledWith(t, 2)

	h.send(t, eventbus.AskEvent{Query: "second"})
	h.send(t, eventbus.InsertCoinEvent{})
	h.waitState(t, models.Armed)

	assert.Equal(t, int32(1), h.dispatch.calls.Load())
	assert.Equal(t, 2, h.svc.Log().Len())
}

func TestServiceFlushesStaleReveal(t *testing.T) {
	h := newHarness(t, stallingRevealer{})

	h.send(t, eventbus.InsertCoinEvent{})
	h.send(t, eventbus.AskEvent{Query: "first", Mode: models.Grounded})
	h.dispatch.results <- models.Success("It burns eternal.", []string{"myth-1"})

	require.Eventually(t, func() bool {
		entries := h.svc.Log().Entries()
		return len(entries) == 2 && entries[1].Revealing && entries[1].Content == "I"
	}, waitFor, tick)
	assert.False(t, h.svc.Settled(), "a reveal in progress is not settled")

	h.send(t, eventbus.InsertCoinEvent{})
	h.send(t, eventbus.AskEvent{Query: "second", Mode: models.Grounded})
	h.waitState(t, models.Pending)

	entries := h.svc.Log().Entries()
	require.Len(t, entries, 5)
	assert.Equal(t, []models.EntryType{models.User, models.Oracle, models.Citations, models.User, models.Status}, types(entries))
	assert.Equal(t, "It burns eternal.", entries[1].Content)
	assert.True(t, entries[1].Finalized())
}

func TestServiceStopWhilePending(t *testing.T) {
	h := newHarness(t, instantRevealer{})

	h.send(t, eventbus.InsertCoinEvent{})
	h.send(t, eventbus.AskEvent{Query: "q"})
	h.waitState(t, models.Pending)

	h.svc.Stop()

	assert.Equal(t, h.presenter.count("start"), h.presenter.count("stop"))
	assert.Equal(t, "stop:silent", h.presenter.Events()[len(h.presenter.Events())-1])
}

func TestServiceThinkingPairsAcrossQuestions(t *testing.T) {
	h := newHarness(t, instantRevealer{})

	results := []models.AnswerResult{
		models.Success("one", nil),
		models.Failed(&models.Failure{Kind: models.BackendError, StatusCode: 500}),
		models.Success("three", nil),
	}
	want := 0
	for i, r := range results {
		h.send(t, eventbus.InsertCoinEvent{})
		h.send(t, eventbus.AskEvent{Query: "question", Mode: models.Mode(i % 2)})
		h.dispatch.results <- r
		want += 2
		h.waitSettledWith(t, want)
	}

	assert.Equal(t, 3, h.presenter.count("start"))
	assert.Equal(t, 3, h.presenter.count("stop"))
}

func TestServiceLongRevealReachesSlowUI(t *testing.T) {
	h := newHarness(t, typingRevealer{})
	answer := strings.Repeat("The stars are ancient. ", 130)

	h.send(t, eventbus.InsertCoinEvent{})
	h.send(t, eventbus.AskEvent{Query: "Tell me of the stars", Mode: models.Direct})
	h.dispatch.results <- models.Success(answer, nil)

	// a consumer slower than the reveal still gets the final snapshot
	var last eventbus.StateUpdateEvent
	timeout := time.After(waitFor)
	for {
		select {
		case snap := <-h.bus.StateUpdates():
			last = snap
		case <-timeout:
			t.Fatalf("never saw the settled answer; last state %s with %d entries", last.State, len(last.Entries))
		}
		if last.Settled && len(last.Entries) == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	assert.Equal(t, models.Idle, last.State)
	assert.Equal(t, models.Oracle, last.Entries[1].Type)
	assert.Equal(t, answer, last.Entries[1].Content)
	assert.True(t, last.Entries[1].Finalized())

	assert.Equal(t, eventbus.CircuitClosed, h.bus.GetCircuitBreakerState())
	h.send(t, eventbus.InsertCoinEvent{})
	h.waitState(t, models.Armed)
}
