package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/zoltar/internal/eventbus"
	"github.com/Rorical/zoltar/internal/health"
	"github.com/Rorical/zoltar/internal/models"
	"github.com/Rorical/zoltar/internal/update"
	"github.com/Rorical/zoltar/ui/components"
)

type AppModel struct {
	appModel models.AppModel
	input    textinput.Model
	eventBus *eventbus.EventBus
	checker  *health.Checker
}

func newAppModel(eb *eventbus.EventBus, checker *health.Checker, mode models.Mode) *AppModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask the oracle..."
	ti.CharLimit = 500
	ti.Focus()

	return &AppModel{
		appModel: models.AppModel{
			Mode:          mode,
			Status:        update.StateHint(models.Idle),
			BackendStatus: health.Unknown.String(),
		},
		input:    ti,
		eventBus: eb,
		checker:  checker,
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		update.TickCmd(),
		update.ListenForCoreEvents(m.eventBus),
		update.HealthCmd(m.checker, 0),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle core events and continue listening
	if coreEvent, ok := msg.(update.CoreEventMsg); ok {
		cmd := update.HandleCoreEvent(&m.appModel, &m.input, coreEvent)
		return m, tea.Batch(cmd, update.ListenForCoreEvents(m.eventBus))
	}

	cmd := update.HandleUpdateWithEventBus(&m.appModel, &m.input, msg, m.eventBus, m.checker)
	return m, cmd
}

func (m *AppModel) View() string {
	var b strings.Builder

	b.WriteString(components.RenderOracle(m.appModel.Frame))
	b.WriteString("\n\n")
	b.WriteString(components.RenderMessages(m.appModel.Entries))
	b.WriteString(components.RenderInput(m.input.View(), m.appModel.State == models.Armed, m.appModel.Width))
	b.WriteString("\n")

	status := fmt.Sprintf("[%s] backend: %s · %s", m.appModel.Mode, m.appModel.BackendStatus, m.appModel.Status)
	b.WriteString(components.RenderStatus(status, m.appModel.Thinking(), m.appModel.LoadingDots, m.appModel.Width))

	return b.String()
}
