package update

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/zoltar/internal/eventbus"
	"github.com/Rorical/zoltar/internal/health"
	"github.com/Rorical/zoltar/internal/models"
)

func HandleUpdateWithEventBus(appModel *models.AppModel, input *textinput.Model, msg tea.Msg, eb *eventbus.EventBus, checker *health.Checker) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return HandleKeyMsgWithEventBus(appModel, input, msg, eb)
	case tea.WindowSizeMsg:
		HandleWindowSizeMsg(appModel, input, msg)
		return nil
	case TickMsg:
		return HandleTickMsg(appModel)
	case CoreEventMsg:
		return HandleCoreEvent(appModel, input, msg)
	case HealthMsg:
		appModel.BackendStatus = msg.Status.String()
		if checker == nil {
			return nil
		}
		return HealthCmd(checker, HealthInterval)
	}

	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	return cmd
}
