package components

import (
	"strings"

	"github.com/Rorical/zoltar/internal/models"
	"github.com/Rorical/zoltar/ui/styles"
)

const (
	revealCursor  = "▌"
	sourcesHeader = "Sources consulted:"
)

func RenderMessages(entries []models.Entry) string {
	var b strings.Builder

	userStyle := styles.UserStyle()
	oracleStyle := styles.OracleStyle()
	thinkingStyle := styles.ThinkingStyle()
	citationStyle := styles.CitationStyle()
	errorStyle := styles.ErrorStyle()
	programStyle := styles.ProgramStyle()

	for _, entry := range entries {
		switch entry.Type {
		case models.User:
			b.WriteString(userStyle.Render("You: "+entry.Content) + "\n\n")
		case models.Oracle:
			content := entry.Content
			if entry.Revealing {
				content += revealCursor
			}
			b.WriteString(oracleStyle.Render("Zoltar: "+content) + "\n\n")
		case models.Status:
			b.WriteString(thinkingStyle.Render(entry.Content) + "\n\n")
		case models.Citations:
			b.WriteString(citationStyle.Render(RenderSources(entry.Sources)) + "\n\n")
		case models.Error:
			b.WriteString(errorStyle.Render(entry.Content) + "\n\n")
		case models.Program:
			b.WriteString(programStyle.Render(entry.Content) + "\n\n")
		}
	}

	return b.String()
}

// RenderSources lists citations under a header, one per line
func RenderSources(sources []string) string {
	lines := make([]string, 0, len(sources)+1)
	lines = append(lines, sourcesHeader)
	for _, s := range sources {
		lines = append(lines, "  - "+s)
	}
	return strings.Join(lines, "\n")
}
