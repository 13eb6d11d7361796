package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"rentlink/internal/models"
)

// PropertiesScreen lists the properties the signed-in tenant is linked to.
type PropertiesScreen struct {
	properties []models.PropertyPreview
	cursor     int
	loaded     bool
	statusMsg  string
	isError    bool
}

func NewPropertiesScreen() PropertiesScreen {
	return PropertiesScreen{}
}

func (s *PropertiesScreen) SetProperties(props []models.PropertyPreview) {
	s.properties = props
	s.loaded = true
	s.statusMsg = ""
	s.isError = false
	if s.cursor >= len(props) {
		s.cursor = 0
	}
}

func (s *PropertiesScreen) SetError(err error) {
	s.statusMsg = "Failed to load properties: " + err.Error()
	s.isError = true
}

func (s PropertiesScreen) Update(msg tea.Msg) (PropertiesScreen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.properties)-1 {
				s.cursor++
			}
		case "r":
			return s, func() tea.Msg { return RefreshPropertiesMsg{} }
		}
	}
	return s, nil
}

func (s PropertiesScreen) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("My Properties"))
	b.WriteString("\n")

	switch {
	case !s.loaded && s.statusMsg == "":
		b.WriteString(mutedStyle.Render("Sign in to see your properties."))
	case len(s.properties) == 0 && s.statusMsg == "":
		b.WriteString(mutedStyle.Render("You're not connected to any property yet."))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Accept an invite from your landlord to get started."))
	default:
		for i, p := range s.properties {
			cursor := "  "
			style := normalStyle
			if i == s.cursor {
				cursor = "▸ "
				style = selectedStyle
			}
			line := p.Name
			if p.Address != "" {
				line += "  " + p.Address
				if p.Unit != "" {
					line += ", Unit " + p.Unit
				}
			}
			b.WriteString(cursor + style.Render(line) + "\n")
		}
	}

	if s.statusMsg != "" {
		b.WriteString("\n")
		if s.isError {
			b.WriteString(errorStyle.Render("⚠ " + s.statusMsg))
		} else {
			b.WriteString(successStyle.Render("✓ " + s.statusMsg))
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ navigate • r refresh"))
	return b.String()
}
