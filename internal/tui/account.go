package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"rentlink/internal/models"
)

type accountMode int

const (
	accountModeSignIn accountMode = iota
	accountModeSignUp
	accountModeSignedIn
)

// AccountScreen is the authentication hand-off: it collects credentials,
// asks the app to sign in or up, and the app reports the resulting identity
// to the coordinator.
type AccountScreen struct {
	mode        accountMode
	email       textinput.Model
	password    textinput.Model
	displayName textinput.Model
	focus       int
	identity    *models.Identity
	statusMsg   string
	isError     bool
	busy        bool
}

func NewAccountScreen() AccountScreen {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Width = 40
	email.Focus()

	password := textinput.New()
	password.Placeholder = "Password"
	password.Width = 40
	password.EchoMode = textinput.EchoPassword

	displayName := textinput.New()
	displayName.Placeholder = "Your name"
	displayName.Width = 40

	return AccountScreen{
		mode:        accountModeSignIn,
		email:       email,
		password:    password,
		displayName: displayName,
	}
}

func (s AccountScreen) Init() tea.Cmd {
	return textinput.Blink
}

func (s *AccountScreen) SetIdentity(ident *models.Identity) {
	s.identity = ident
	if ident != nil {
		s.mode = accountModeSignedIn
		s.busy = false
	} else if s.mode == accountModeSignedIn {
		s.mode = accountModeSignIn
		s.email.Focus()
		s.focus = 0
	}
}

func (s AccountScreen) Update(msg tea.Msg) (AccountScreen, tea.Cmd) {
	switch msg := msg.(type) {
	case SignInFailMsg:
		s.busy = false
		s.statusMsg = msg.Err.Error()
		s.isError = true
		return s, nil

	case tea.KeyMsg:
		if s.mode == accountModeSignedIn {
			if msg.String() == "x" {
				return s, func() tea.Msg { return SignedOutMsg{} }
			}
			return s, nil
		}
		if s.busy {
			return s, nil
		}

		switch msg.String() {
		case "tab", "down":
			s.focus = (s.focus + 1) % s.fieldCount()
			return s.applyFocus(), nil
		case "shift+tab", "up":
			s.focus = (s.focus - 1 + s.fieldCount()) % s.fieldCount()
			return s.applyFocus(), nil
		case "ctrl+u":
			if s.mode == accountModeSignIn {
				s.mode = accountModeSignUp
			} else {
				s.mode = accountModeSignIn
			}
			s.focus = 0
			s.statusMsg = ""
			return s.applyFocus(), nil
		case "enter":
			return s.submit()
		}
	}

	var cmd tea.Cmd
	switch s.focus {
	case 0:
		s.email, cmd = s.email.Update(msg)
	case 1:
		s.password, cmd = s.password.Update(msg)
	case 2:
		s.displayName, cmd = s.displayName.Update(msg)
	}
	return s, cmd
}

func (s AccountScreen) fieldCount() int {
	if s.mode == accountModeSignUp {
		return 3
	}
	return 2
}

func (s AccountScreen) applyFocus() AccountScreen {
	s.email.Blur()
	s.password.Blur()
	s.displayName.Blur()
	switch s.focus {
	case 0:
		s.email.Focus()
	case 1:
		s.password.Focus()
	case 2:
		s.displayName.Focus()
	}
	return s
}

func (s AccountScreen) submit() (AccountScreen, tea.Cmd) {
	email := strings.TrimSpace(s.email.Value())
	password := s.password.Value()
	if email == "" || password == "" {
		s.statusMsg = "Email and password are required"
		s.isError = true
		return s, nil
	}

	s.busy = true
	s.statusMsg = ""
	signUp := s.mode == accountModeSignUp
	displayName := strings.TrimSpace(s.displayName.Value())
	return s, func() tea.Msg {
		return AccountSubmitMsg{
			SignUp:      signUp,
			Email:       email,
			Password:    password,
			DisplayName: displayName,
		}
	}
}

func (s AccountScreen) View() string {
	var b strings.Builder

	if s.mode == accountModeSignedIn && s.identity != nil {
		b.WriteString(titleStyle.Render("Account"))
		b.WriteString("\n")
		b.WriteString("Signed in as " + successStyle.Render(s.identity.Email))
		b.WriteString("\n")
		if s.identity.DisplayName != "" {
			b.WriteString(mutedStyle.Render(s.identity.DisplayName))
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("x sign out"))
		return b.String()
	}

	if s.mode == accountModeSignUp {
		b.WriteString(titleStyle.Render("Create account"))
	} else {
		b.WriteString(titleStyle.Render("Sign in"))
	}
	b.WriteString("\n")

	b.WriteString("Email:\n")
	b.WriteString(s.renderInput(s.email, s.focus == 0))
	b.WriteString("\n\nPassword:\n")
	b.WriteString(s.renderInput(s.password, s.focus == 1))
	if s.mode == accountModeSignUp {
		b.WriteString("\n\nName:\n")
		b.WriteString(s.renderInput(s.displayName, s.focus == 2))
	}
	b.WriteString("\n")

	if s.busy {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Signing in..."))
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
	if s.mode == accountModeSignUp {
		b.WriteString(helpStyle.Render("enter create account • ctrl+u sign in instead • tab next field"))
	} else {
		b.WriteString(helpStyle.Render("enter sign in • ctrl+u create account instead • tab next field"))
	}
	return b.String()
}

func (s AccountScreen) renderInput(in textinput.Model, focused bool) string {
	if focused {
		return focusedInputStyle.Render(in.View())
	}
	return inputStyle.Render(in.View())
}

func (s AccountScreen) IsInputActive() bool {
	return s.mode != accountModeSignedIn
}
