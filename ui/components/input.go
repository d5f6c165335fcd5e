package components

import (
	"github.com/Rorical/zoltar/ui/styles"
)

// RenderInput frames the text input view; armed highlights the border
func RenderInput(inputView string, armed bool, width int) string {
	style := styles.InputStyle(width)
	if armed {
		style = styles.ArmedInputStyle(width)
	}
	return style.Render(inputView)
}
