package components

import (
	"strings"

	"github.com/Rorical/zoltar/ui/styles"
)

func RenderStatus(status string, thinking bool, loadingDots int, width int) string {
	statusStyle := styles.StatusStyle(width)

	statusContent := status
	if thinking {
		statusContent += strings.Repeat(".", loadingDots)
	}

	return statusStyle.Render(statusContent)
}
