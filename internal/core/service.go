package core

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Rorical/zoltar/internal/eventbus"
	"github.com/Rorical/zoltar/internal/models"
)

const ThinkingText = "The oracle is thinking..."

// Dispatcher sends a question to the backend. It never fails past its
// boundary: every failure is carried in the result.
type Dispatcher interface {
	Dispatch(ctx context.Context, mode models.Mode, query string) models.AnswerResult
}

// Presenter is the animation and sound side of the oracle
type Presenter interface {
	StartThinking()
	StopThinking(success bool)
	PlayCoin()
}

// Revealer types an answer out, calling update with each partial text
type Revealer interface {
	Reveal(ctx context.Context, text string, update func(partial string)) error
}

type Deps struct {
	Dispatcher Dispatcher
	Presenter  Presenter
	Revealer   Revealer
	EventBus   *eventbus.EventBus
	Log        *ConversationLog
	Logger     *slog.Logger
}

// internal events posted back into the loop by dispatch and reveal goroutines
type resolvedEvent struct {
	seq    uint64
	result models.AnswerResult
}

type revealStepEvent struct {
	id      string
	partial string
}

type revealDoneEvent struct {
	id  string
	err error
}

type activeReveal struct {
	id      string
	text    string
	sources []string
	cancel  context.CancelFunc
}

// OracleService owns one oracle instance: its state machine snapshot, its
// conversation log and the effects it triggers. All mutation happens on the
// event loop goroutine.
type OracleService struct {
	dispatcher Dispatcher
	presenter  Presenter
	revealer   Revealer
	log        *ConversationLog
	eventBus   *eventbus.EventBus
	logger     *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	internal chan any
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.RWMutex // guards snap and settled for readers off the loop
	snap    Snapshot
	settled bool

	// loop-owned
	thinkingID string
	reveal     *activeReveal
}

func NewOracleService(deps Deps) *OracleService {
	ctx, cancel := context.WithCancel(context.Background())

	log := deps.Log
	if log == nil {
		log = NewConversationLog()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OracleService{
		dispatcher: deps.Dispatcher,
		presenter:  deps.Presenter,
		revealer:   deps.Revealer,
		log:        log,
		eventBus:   deps.EventBus,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		internal:   make(chan any, 16),
		settled:    true,
	}
}

// Start runs the event loop in a goroutine
func (s *OracleService) Start() {
	s.pushStateToUI()
	s.wg.Add(1)
	go s.eventLoop()
}

// Stop ends the loop and waits for in-flight work. A pending request is
// abandoned, but its thinking animation is still stopped.
func (s *OracleService) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()

		if s.Snapshot().State == models.Pending {
			s.presenter.StopThinking(false)
		}
	})
}

func (s *OracleService) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Settled reports whether nothing is in flight: no request and no reveal
func (s *OracleService) Settled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settled
}

func (s *OracleService) Log() *ConversationLog {
	return s.log
}

func (s *OracleService) eventLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-s.eventBus.UIToCore():
			if !ok {
				return
			}
			s.handleUIEvent(event)
		case event := <-s.internal:
			s.handleInternal(event)
		}
	}
}

func (s *OracleService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.InsertCoinEvent:
		s.apply(InsertToken{})
	case eventbus.AskEvent:
		s.apply(Submit{Query: e.Query, Mode: e.Mode})
	}
}

func (s *OracleService) handleInternal(event any) {
	switch e := event.(type) {
	case resolvedEvent:
		s.apply(Resolve{Seq: e.seq, Result: e.result})
	case revealStepEvent:
		if s.reveal == nil || s.reveal.id != e.id {
			return
		}
		s.log.UpdateReveal(e.id, e.partial)
		s.pushStateToUI()
	case revealDoneEvent:
		if s.reveal == nil || s.reveal.id != e.id {
			return
		}
		if e.err != nil {
			s.logger.Debug("reveal interrupted", "error", e.err)
		}
		s.finishReveal()
		s.pushStateToUI()
	}
}

// apply runs the transition and then its effects, in order
func (s *OracleService) apply(a Action) {
	s.mu.Lock()
	before := s.snap.State
	next, effects := Step(s.snap, a)
	s.snap = next
	s.mu.Unlock()

	if len(effects) == 0 {
		s.logger.Debug("action ignored", "action", actionName(a), "state", before.String())
		return
	}
	s.logger.Debug("transition", "action", actionName(a), "from", before.String(), "to", next.State.String())

	for _, effect := range effects {
		s.run(effect)
	}
	s.pushStateToUI()
}

func (s *OracleService) run(effect Effect) {
	switch e := effect.(type) {
	case PlayCoin:
		s.presenter.PlayCoin()

	case AppendQuery:
		// A reveal still typing from the previous answer is completed at once
		// so the two answers never interleave
		s.finishReveal()
		s.log.Append(models.Entry{Type: models.User, Content: e.Query})

	case StartThinking:
		s.presenter.StartThinking()

	case ShowThinking:
		s.thinkingID = s.log.Append(models.Entry{
			Type:      models.Status,
			Content:   ThinkingText,
			Transient: true,
		})

	case Dispatch:
		s.logger.Info("dispatching question", "mode", e.Mode.String(), "seq", e.Seq)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			result := s.dispatcher.Dispatch(s.ctx, e.Mode, e.Query)
			s.post(s.ctx, resolvedEvent{seq: e.Seq, result: result})
		}()

	case StopThinking:
		s.presenter.StopThinking(e.Success)

	case ClearThinking:
		if s.thinkingID != "" {
			s.log.Remove(s.thinkingID)
			s.thinkingID = ""
		}

	case RevealAnswer:
		s.startReveal(e.Text, e.Sources)

	case ShowFailure:
		s.logger.Warn("question failed", "kind", e.Failure.Kind.String(), "error", e.Failure)
		s.log.Append(models.Entry{Type: models.Error, Content: e.Failure.UserMessage()})
	}
}

func (s *OracleService) startReveal(text string, sources []string) {
	id := s.log.Append(models.Entry{Type: models.Oracle, Revealing: true})
	ctx, cancel := context.WithCancel(s.ctx)
	s.reveal = &activeReveal{id: id, text: text, sources: sources, cancel: cancel}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.revealer.Reveal(ctx, text, func(partial string) {
			s.post(ctx, revealStepEvent{id: id, partial: partial})
		})
		s.post(ctx, revealDoneEvent{id: id, err: err})
	}()
}

// finishReveal freezes the current reveal with its full text and appends
// its citations
func (s *OracleService) finishReveal() {
	r := s.reveal
	if r == nil {
		return
	}
	s.reveal = nil
	r.cancel()

	s.log.Finalize(r.id, r.text)
	if len(r.sources) > 0 {
		s.log.Append(models.Entry{Type: models.Citations, Sources: r.sources})
	}
}

func (s *OracleService) post(ctx context.Context, event any) {
	select {
	case s.internal <- event:
	case <-ctx.Done():
	}
}

func (s *OracleService) pushStateToUI() {
	s.mu.Lock()
	state := s.snap.State
	s.settled = state != models.Pending && s.reveal == nil
	settled := s.settled
	s.mu.Unlock()

	if err := s.eventBus.PublishState(eventbus.StateUpdateEvent{
		Entries: s.log.Entries(),
		State:   state,
		Settled: settled,
	}); err != nil {
		s.logger.Debug("state update dropped", "error", err)
	}
}

func actionName(a Action) string {
	switch a.(type) {
	case InsertToken:
		return "insert_token"
	case Submit:
		return "submit"
	case Resolve:
		return "resolve"
	default:
		return "unknown"
	}
}
