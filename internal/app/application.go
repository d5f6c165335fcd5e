package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/zoltar/internal/audio"
	"github.com/Rorical/zoltar/internal/config"
	"github.com/Rorical/zoltar/internal/core"
	"github.com/Rorical/zoltar/internal/dispatcher"
	"github.com/Rorical/zoltar/internal/effects"
	"github.com/Rorical/zoltar/internal/eventbus"
	"github.com/Rorical/zoltar/internal/health"
	"github.com/Rorical/zoltar/internal/logging"
	"github.com/Rorical/zoltar/internal/models"
	"github.com/Rorical/zoltar/internal/update"
	"github.com/Rorical/zoltar/ui/components"
)

var (
	ErrEmptyQuestion = errors.New("the question is empty")
	ErrNoAnswer      = errors.New("the oracle gave no answer")
)

var welcome = []string{
	"-- ZOLTAR SPEAKS --",
	"ctrl+o insert a coin · tab switch mode · enter ask · esc quit",
}

type Options struct {
	Mode models.Mode
	Mute bool
	// InstantReveal shows answers at once instead of typing them out
	InstantReveal bool
}

// Application manages the complete application lifecycle
type Application struct {
	config   *config.Config
	logger   *logging.Logger
	eventBus *eventbus.EventBus
	sound    audio.Player
	thinking *effects.Thinking
	checker  *health.Checker
	service  *core.OracleService
	model    *AppModel
}

func NewApplication(cfg *config.Config, opts Options) (*Application, error) {
	logger, err := logging.New(logging.Config{
		Level:   cfg.LogLevel(),
		File:    cfg.LogFile(),
		Service: "zoltar",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	eb := eventbus.NewEventBus()
	eb.SetErrorCallback(func(e eventbus.EventBusError) {
		logger.Warn("event bus error", "operation", e.Operation, "error", e.Err)
	})

	sound := audio.NewPlayer(!opts.Mute && !cfg.Muted(), logger.Logger)
	thinking := effects.NewThinking(sound, effects.FrameInterval, func(frame int) {
		_ = eb.SendToUI(eventbus.FrameEvent{Frame: frame})
	})

	delay := effects.CharDelay
	if opts.InstantReveal {
		delay = 0
	}

	checker := health.NewChecker(cfg.HealthURL(), 5*time.Second, nil, logger.Logger)

	service := core.NewOracleService(core.Deps{
		Dispatcher: NewDispatcher(cfg, logger),
		Presenter:  thinking,
		Revealer:   effects.NewRevealer(delay),
		EventBus:   eb,
		Logger:     logger.Logger,
	})

	logger.Info("application created",
		"profile", cfg.ActiveProfile,
		"base_url", cfg.BaseURL(),
		"openai", cfg.APIKey() != "",
	)

	return &Application{
		config:   cfg,
		logger:   logger,
		eventBus: eb,
		sound:    sound,
		thinking: thinking,
		checker:  checker,
		service:  service,
		model:    newAppModel(eb, checker, opts.Mode),
	}, nil
}

// NewDispatcher picks the backends for the active profile: direct questions
// go to the OpenAI-compatible API when a key is configured, everything else
// to the oracle HTTP backend.
func NewDispatcher(cfg *config.Config, logger *logging.Logger) core.Dispatcher {
	p := cfg.Current()
	backend := dispatcher.New(cfg.BaseURL(),
		dispatcher.WithPaths(p.GeneratePath, p.TeacherPath),
		dispatcher.WithHints(dispatcher.Hints{Topic: p.Topic, Level: p.Level}),
		dispatcher.WithTimeout(cfg.Timeout()),
		dispatcher.WithLogger(logger.Logger),
	)

	key := cfg.APIKey()
	if key == "" {
		return backend
	}
	direct := dispatcher.NewOpenAIBackend(
		dispatcher.NewOpenAIClient(key, p.OpenAIBaseURL),
		p.Model, p.Persona, cfg.Timeout(), logger.Logger,
	)
	return dispatcher.NewRouter(direct, backend)
}

func (app *Application) Start() error {
	for _, line := range welcome {
		app.service.Log().AddProgramMessage(line)
	}
	app.service.Start()

	p := tea.NewProgram(app.model)
	_, err := p.Run()

	return err
}

// Ask inserts a coin, asks one question and writes the answer to out as it
// is revealed. It returns once the answer or its failure is complete.
func (app *Application) Ask(ctx context.Context, query string, mode models.Mode, out io.Writer) error {
	if _, ok := models.NormalizeQuery(query); !ok {
		return ErrEmptyQuestion
	}

	app.service.Start()
	if err := app.eventBus.SendToCore(eventbus.InsertCoinEvent{}); err != nil {
		return fmt.Errorf("insert coin: %w", err)
	}
	if err := app.eventBus.SendToCore(eventbus.AskEvent{Query: query, Mode: mode}); err != nil {
		return fmt.Errorf("send question: %w", err)
	}

	printer := newAnswerPrinter(out)
	accepted := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-app.eventBus.CoreToUI():
			// sprite frames have no use without a screen
			if !ok {
				return eventbus.ErrClosed
			}
		case snap, ok := <-app.eventBus.StateUpdates():
			if !ok {
				return eventbus.ErrClosed
			}
			// snapshots coalesce, so Pending itself may never be seen; the
			// question's entry in the log marks acceptance
			accepted = accepted || update.CountQuestions(snap.Entries) > 0
			if !accepted {
				continue
			}
			printer.print(snap.Entries)
			if snap.Settled {
				return printer.result()
			}
		}
	}
}

func (app *Application) Stop() {
	app.service.Stop()
	app.sound.Close()
	app.eventBus.Close()
	_ = app.logger.Close()
}

// answerPrinter writes the growing answer as a stream of new characters
type answerPrinter struct {
	out     io.Writer
	written map[string]int
	closed  map[string]bool
	failure string
}

func newAnswerPrinter(out io.Writer) *answerPrinter {
	return &answerPrinter{out: out, written: map[string]int{}, closed: map[string]bool{}}
}

func (p *answerPrinter) print(entries []models.Entry) {
	for _, e := range entries {
		switch e.Type {
		case models.Oracle:
			if n := p.written[e.ID]; len(e.Content) > n {
				fmt.Fprint(p.out, e.Content[n:])
				p.written[e.ID] = len(e.Content)
			}
			if e.Finalized() && !p.closed[e.ID] {
				fmt.Fprintln(p.out)
				p.closed[e.ID] = true
			}
		case models.Citations:
			if !p.closed[e.ID] {
				fmt.Fprintln(p.out, components.RenderSources(e.Sources))
				p.closed[e.ID] = true
			}
		case models.Error:
			p.failure = e.Content
		}
	}
}

func (p *answerPrinter) result() error {
	if p.failure != "" {
		return fmt.Errorf("%w: %s", ErrNoAnswer, p.failure)
	}
	return nil
}
