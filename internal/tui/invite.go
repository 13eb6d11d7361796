package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"rentlink/internal/invite"
)

// InviteScreen renders the acceptance coordinator's state. It owns no flow
// logic: keys emit request messages, the app drives the coordinator, and new
// snapshots land here.
type InviteScreen struct {
	snap    invite.Snapshot
	attempt int
	spinner spinner.Model
	active  bool
}

func NewInviteScreen() InviteScreen {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = mutedStyle
	return InviteScreen{spinner: sp}
}

func (s InviteScreen) Init() tea.Cmd {
	return s.spinner.Tick
}

func (s *InviteScreen) SetSnapshot(snap invite.Snapshot) {
	s.snap = snap
	s.active = true
	if snap.State != invite.StateValidating {
		s.attempt = 0
	}
}

func (s *InviteScreen) SetAttempt(n int) {
	s.attempt = n
}

func (s InviteScreen) HasFlow() bool {
	return s.active
}

func (s InviteScreen) Update(msg tea.Msg) (InviteScreen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		return s.updateKeys(msg)
	}

	return s, nil
}

func (s InviteScreen) updateKeys(msg tea.KeyMsg) (InviteScreen, tea.Cmd) {
	// The blocking overlay: no input while the consuming call is in flight.
	if s.snap.State == invite.StateAccepting {
		return s, nil
	}

	switch s.snap.State {
	case invite.StateAwaitingAuth:
		switch msg.String() {
		case "a", "enter":
			return s, func() tea.Msg { return GoToAccountMsg{} }
		case "d":
			return s, func() tea.Msg { return InviteDeclineMsg{} }
		}

	case invite.StateReadyToAccept:
		if s.snap.NeedsAccountChoice {
			switch msg.String() {
			case "s":
				return s, func() tea.Msg { return InviteSwitchAccountMsg{} }
			case "c":
				return s, func() tea.Msg { return InviteContinueMsg{} }
			}
			return s, nil
		}
		if s.snap.Stale {
			switch msg.String() {
			case "r":
				return s, func() tea.Msg { return InviteRetryMsg{} }
			case "d":
				return s, func() tea.Msg { return InviteDeclineMsg{} }
			}
			return s, nil
		}
		switch msg.String() {
		case "enter":
			return s, func() tea.Msg { return InviteAcceptRequestMsg{} }
		case "d":
			return s, func() tea.Msg { return InviteDeclineMsg{} }
		}

	case invite.StateFailed:
		switch msg.String() {
		case "r":
			if s.snap.Failure.Retryable() {
				return s, func() tea.Msg { return InviteRetryMsg{} }
			}
		case "d":
			return s, func() tea.Msg { return InviteDeclineMsg{} }
		}

	case invite.StateAccepted:
		if msg.String() == "o" || msg.String() == "enter" {
			return s, func() tea.Msg { return OpenPropertiesMsg{} }
		}
	}

	return s, nil
}

func (s InviteScreen) View() string {
	if !s.active {
		var b strings.Builder
		b.WriteString(titleStyle.Render("Invites"))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("No invite in progress."))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Open an invite link from your landlord to get started."))
		return b.String()
	}

	switch s.snap.State {
	case invite.StateIdle, invite.StateResolvingToken, invite.StateValidating:
		return s.viewValidating()
	case invite.StateAwaitingAuth:
		return s.viewAwaitingAuth()
	case invite.StateReadyToAccept:
		return s.viewReady()
	case invite.StateAccepting:
		return s.viewAccepting()
	case invite.StateAccepted:
		return s.viewAccepted()
	case invite.StateDeclined:
		return mutedStyle.Render("Invite declined.")
	case invite.StateFailed:
		return s.viewFailed()
	}
	return ""
}

func (s InviteScreen) viewValidating() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Checking your invite"))
	b.WriteString("\n")
	b.WriteString(s.spinner.View())
	b.WriteString(" Contacting the server...")
	if s.attempt > 1 {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(fmt.Sprintf("Connection trouble - retrying, attempt %d", s.attempt)))
	}
	return b.String()
}

func (s InviteScreen) propertyBox() string {
	var b strings.Builder
	p := s.snap.Property
	b.WriteString(successStyle.Render(p.Name))
	b.WriteString("\n")
	if p.Address != "" {
		b.WriteString(p.Address)
		if p.Unit != "" {
			b.WriteString(", Unit " + p.Unit)
		}
		b.WriteString("\n")
	}
	if p.LandlordName != "" {
		b.WriteString(mutedStyle.Render("Managed by " + p.LandlordName))
		b.WriteString("\n")
	}
	return boxStyle.Render(b.String())
}

func (s InviteScreen) viewAwaitingAuth() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("You're invited"))
	b.WriteString("\n")
	b.WriteString(s.propertyBox())
	b.WriteString("\n\n")
	b.WriteString("Sign in or create an account to join this property.")
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Your invite is saved and will resume after you sign in."))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("a sign in • d decline"))
	return b.String()
}

func (s InviteScreen) viewReady() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("You're invited"))
	b.WriteString("\n")
	b.WriteString(s.propertyBox())
	b.WriteString("\n")

	if s.snap.Stale {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("You appear to be offline."))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("This preview was saved earlier; accepting needs a connection."))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("r try again • d decline"))
		return b.String()
	}

	if s.snap.NeedsAccountChoice {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("This invite was sent to " + s.snap.IntendedEmail + "."))
		b.WriteString("\n")
		b.WriteString("You're signed in with a different email.")
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("s switch account • c continue anyway"))
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter accept • d decline"))
	return b.String()
}

func (s InviteScreen) viewAccepting() string {
	var b strings.Builder
	b.WriteString(s.spinner.View())
	b.WriteString(" Joining ")
	b.WriteString(successStyle.Render(s.snap.Property.Name))
	b.WriteString("...\n")
	b.WriteString(mutedStyle.Render("Hang tight, this only takes a moment."))
	return overlayStyle.Render(b.String())
}

func (s InviteScreen) viewAccepted() string {
	var b strings.Builder
	name := s.snap.PropertyName
	if name == "" {
		name = s.snap.Property.Name
	}
	if s.snap.AlreadyLinked {
		b.WriteString(titleStyle.Render("Already a tenant"))
		b.WriteString("\n")
		b.WriteString("You're already connected to " + successStyle.Render(name) + ".")
	} else {
		b.WriteString(titleStyle.Render("Welcome home"))
		b.WriteString("\n")
		b.WriteString("You're now connected to " + successStyle.Render(name) + ".")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("o open property"))
	return b.String()
}

var failureCopy = map[invite.FailureKind]string{
	invite.FailMalformed:       "This invite link is incomplete. Ask for a fresh link.",
	invite.FailExpired:         "This invite has expired. Ask your landlord for a new one.",
	invite.FailRevoked:         "This invite was cancelled by the sender.",
	invite.FailCapacityReached: "This invite has already been used.",
	invite.FailNotFound:        "We couldn't find this invite. Check the link and try again.",
	invite.FailMismatch:        "This link doesn't match the property it claims. Ask for a fresh link.",
	invite.FailNetwork:         "We couldn't reach the server. Check your connection and retry.",
	invite.FailGeneric:         "Something went wrong on our side. Please retry.",
}

func (s InviteScreen) viewFailed() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Couldn't process invite"))
	b.WriteString("\n")

	copyText, ok := failureCopy[s.snap.Failure]
	if !ok {
		copyText = failureCopy[invite.FailGeneric]
	}
	b.WriteString(errorStyle.Render("⚠ " + copyText))
	b.WriteString("\n")

	if s.snap.Failure.Retryable() {
		b.WriteString(helpStyle.Render("r retry • d decline"))
	} else {
		b.WriteString(helpStyle.Render("d dismiss"))
	}
	return b.String()
}
