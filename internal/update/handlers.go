package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/zoltar/internal/eventbus"
	"github.com/Rorical/zoltar/internal/health"
	"github.com/Rorical/zoltar/internal/models"
)

const (
	HealthInterval = 15 * time.Second

	hintIdle    = "Insert a coin (ctrl+o)"
	hintArmed   = "The oracle awaits your question (enter)"
	hintPending = "The oracle is thinking"
)

// HandleKeyMsgWithEventBus handles keyboard input using event bus
func HandleKeyMsgWithEventBus(appModel *models.AppModel, input *textinput.Model, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	switch keyMsg.String() {
	case "ctrl+c", "esc":
		return tea.Quit
	case "ctrl+o":
		if err := eb.SendToCore(eventbus.InsertCoinEvent{}); err != nil {
			appModel.Status = "Error inserting coin: " + err.Error()
		}
		return nil
	case "tab":
		appModel.Mode = appModel.Mode.Toggle()
		appModel.Status = "Mode: " + appModel.Mode.String()
		return nil
	case "enter":
		query, ok := models.NormalizeQuery(input.Value())
		if !ok {
			return nil
		}
		if appModel.State == models.Pending {
			appModel.Status = hintPending
			return nil
		}
		// The core decides; the input is cleared once the question shows up in the log
		if err := eb.SendToCore(eventbus.AskEvent{Query: query, Mode: appModel.Mode}); err != nil {
			appModel.Status = "Error sending question: " + err.Error()
		}
		return nil
	}

	var cmd tea.Cmd
	*input, cmd = input.Update(keyMsg)
	return cmd
}

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// ListenForCoreEvents waits for the next core event or state snapshot. It
// returns nil once the bus is closed, which ends the listening chain.
func ListenForCoreEvents(eb *eventbus.EventBus) tea.Cmd {
	return func() tea.Msg {
		select {
		case state, ok := <-eb.StateUpdates():
			if !ok {
				return nil
			}
			return CoreEventMsg{Event: state}
		case event, ok := <-eb.CoreToUI():
			if !ok {
				return nil
			}
			return CoreEventMsg{Event: event}
		}
	}
}

// HandleCoreEvent processes events from the core
func HandleCoreEvent(appModel *models.AppModel, input *textinput.Model, coreEventMsg CoreEventMsg) tea.Cmd {
	switch event := coreEventMsg.Event.(type) {
	case eventbus.StateUpdateEvent:
		// a new question in the log means the core accepted the input
		accepted := CountQuestions(event.Entries) > CountQuestions(appModel.Entries)
		appModel.Entries = event.Entries
		appModel.State = event.State

		if accepted {
			input.Reset()
		}
		appModel.Status = StateHint(event.State)
	case eventbus.FrameEvent:
		appModel.Frame = event.Frame
	}

	return nil
}

// CountQuestions counts the user entries in a log snapshot
func CountQuestions(entries []models.Entry) int {
	n := 0
	for _, e := range entries {
		if e.Type == models.User {
			n++
		}
	}
	return n
}

func StateHint(s models.State) string {
	switch s {
	case models.Armed:
		return hintArmed
	case models.Pending:
		return hintPending
	default:
		return hintIdle
	}
}

type TickMsg time.Time

func TickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// HealthMsg carries a backend health check result
type HealthMsg struct {
	Status health.Status
}

// HealthCmd checks the backend after delay
func HealthCmd(checker *health.Checker, delay time.Duration) tea.Cmd {
	check := func() tea.Msg {
		return HealthMsg{Status: checker.Check(context.Background())}
	}
	if delay <= 0 {
		return check
	}
	return tea.Tick(delay, func(time.Time) tea.Msg { return check() })
}

func HandleWindowSizeMsg(appModel *models.AppModel, input *textinput.Model, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
	input.Width = max(sizeMsg.Width-10, 10)
}

func HandleTickMsg(appModel *models.AppModel) tea.Cmd {
	if appModel.Thinking() {
		appModel.LoadingDots = (appModel.LoadingDots + 1) % 4
	} else {
		appModel.LoadingDots = 0
	}
	return TickCmd()
}
