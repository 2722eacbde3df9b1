package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/michaelbrown/ibrl/internal/llm"
)

// ExportMarkdown renders a transcript and its messages as a markdown document.
func ExportMarkdown(t *Transcript, messages []llm.Message) string {
	var b strings.Builder

	title := t.Title
	if title == "" {
		title = "IBRL conversation"
	}
	b.WriteString(fmt.Sprintf("# %s\n\n", title))
	b.WriteString(fmt.Sprintf("- **Session:** %s\n", t.ID))
	if t.Persona != "" {
		b.WriteString(fmt.Sprintf("- **Persona:** %s\n", t.Persona))
	}
	b.WriteString(fmt.Sprintf("- **Provider:** %s\n", t.Provider))
	b.WriteString(fmt.Sprintf("- **Model:** %s\n", t.Model))
	b.WriteString(fmt.Sprintf("- **Created:** %s\n", t.CreatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString("\n---\n\n")

	speaker := t.Persona
	if speaker == "" {
		speaker = "Assistant"
	}
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			continue
		case llm.RoleUser:
			b.WriteString(fmt.Sprintf("## You\n\n%s\n\n", m.Content))
		case llm.RoleAssistant:
			if m.Content != "" {
				b.WriteString(fmt.Sprintf("## %s\n\n%s\n\n", speaker, m.Content))
			}
		}
	}

	return b.String()
}

// ExportJSON renders a transcript and its messages as formatted JSON.
func ExportJSON(t *Transcript, messages []llm.Message) ([]byte, error) {
	export := struct {
		Transcript *Transcript   `json:"transcript"`
		Messages   []llm.Message `json:"messages"`
	}{
		Transcript: t,
		Messages:   messages,
	}
	return json.MarshalIndent(export, "", "  ")
}
