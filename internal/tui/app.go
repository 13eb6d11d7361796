package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rentlink/internal/api"
	"rentlink/internal/invite"
	"rentlink/internal/logging"
	"rentlink/internal/models"
	"rentlink/internal/storage"
)

type Tab int

const (
	TabProperties Tab = iota
	TabInvite
	TabAccount
)

var tabNames = []string{"Properties", "Invite", "Account"}

// App is the navigation shell. It hands token sources to the coordinator,
// forwards authentication transitions, and switches screens on the terminal
// signals the coordinator reports.
type App struct {
	store  *storage.Store
	client *api.Client
	coord  *invite.Coordinator

	activeTab Tab
	width     int
	height    int

	propertiesScreen PropertiesScreen
	inviteScreen     InviteScreen
	accountScreen    AccountScreen

	session   *models.Session
	source    invite.Source
	hasSource bool

	attemptCh chan int

	statusMsg     string
	statusIsError bool
}

// NewApp wires the shell. src carries the route/deep-link token when the
// process was launched from an invite link; with no source, a parked invite
// in the store still starts the flow (the bootstrap-from-store path).
func NewApp(store *storage.Store, client *api.Client, coord *invite.Coordinator, src invite.Source, session *models.Session) *App {
	hasSource := src.RouteToken != "" || src.DeepLink != ""
	if !hasSource {
		if pending, err := store.GetPendingInvite(); err == nil && pending != nil {
			hasSource = true
		}
	}

	activeTab := TabProperties
	if hasSource {
		activeTab = TabInvite
	} else if session == nil {
		activeTab = TabAccount
	}

	app := &App{
		store:            store,
		client:           client,
		coord:            coord,
		activeTab:        activeTab,
		propertiesScreen: NewPropertiesScreen(),
		inviteScreen:     NewInviteScreen(),
		accountScreen:    NewAccountScreen(),
		session:          session,
		source:           src,
		hasSource:        hasSource,
		attemptCh:        make(chan int, 8),
	}
	if session != nil {
		app.accountScreen.SetIdentity(&session.Identity)
	}
	return app
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		a.inviteScreen.Init(),
		a.accountScreen.Init(),
		a.listenAttempts(),
	}
	if a.hasSource {
		cmds = append(cmds, a.resolveCmd())
	}
	if a.session != nil {
		cmds = append(cmds, a.loadPropertiesCmd())
	}
	return tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.isInputActive() && !a.isBlocking() {
			switch msg.String() {
			case "1":
				a.activeTab = TabProperties
				return a, nil
			case "2":
				a.activeTab = TabInvite
				return a, nil
			case "3":
				a.activeTab = TabAccount
				return a, nil
			case "tab":
				a.activeTab = Tab((int(a.activeTab) + 1) % 3)
				return a, nil
			}
		}

	case InviteSnapshotMsg:
		return a.handleSnapshot(msg.Snap)

	case ValidateAttemptMsg:
		a.inviteScreen.SetAttempt(msg.Attempt)
		return a, a.listenAttempts()

	case InviteAcceptRequestMsg:
		return a, a.acceptCmd()

	case InviteRetryMsg:
		return a, a.retryCmd()

	case InviteDeclineMsg:
		return a, a.declineCmd()

	case InviteContinueMsg:
		return a, func() tea.Msg {
			return InviteSnapshotMsg{Snap: a.coord.ContinueAnyway()}
		}

	case InviteSwitchAccountMsg:
		return a.handleSignOut(true)

	case GoToAccountMsg:
		a.activeTab = TabAccount
		return a, nil

	case OpenPropertiesMsg:
		a.activeTab = TabProperties
		return a, a.loadPropertiesCmd()

	case AccountSubmitMsg:
		return a, a.authCmd(msg)

	case SignedInMsg:
		return a.handleSignedIn(msg.Session)

	case SignInFailMsg:
		a.accountScreen, _ = a.accountScreen.Update(msg)
		return a, nil

	case SignedOutMsg:
		return a.handleSignOut(false)

	case RefreshPropertiesMsg:
		return a, a.loadPropertiesCmd()

	case PropertiesLoadedMsg:
		a.propertiesScreen.SetProperties(msg.Properties)
		return a, nil

	case PropertiesFailMsg:
		a.propertiesScreen.SetError(msg.Err)
		return a, nil

	case StatusMsg:
		a.statusMsg = msg.Message
		a.statusIsError = msg.IsError
		return a, nil
	}

	switch a.activeTab {
	case TabProperties:
		var cmd tea.Cmd
		a.propertiesScreen, cmd = a.propertiesScreen.Update(msg)
		cmds = append(cmds, cmd)
	case TabInvite:
		var cmd tea.Cmd
		a.inviteScreen, cmd = a.inviteScreen.Update(msg)
		cmds = append(cmds, cmd)
	case TabAccount:
		var cmd tea.Cmd
		a.accountScreen, cmd = a.accountScreen.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Spinner ticks must reach the invite screen even when another tab has
	// focus, so an in-flight accept keeps animating after a tab switch.
	if a.activeTab != TabInvite {
		if _, ok := msg.(spinner.TickMsg); ok {
			var cmd tea.Cmd
			a.inviteScreen, cmd = a.inviteScreen.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return a, tea.Batch(cmds...)
}

// handleSnapshot advances the flow on every coordinator transition: entering
// validating triggers the network check, an authenticated ready state
// auto-accepts, and terminal states update navigation.
func (a App) handleSnapshot(snap invite.Snapshot) (tea.Model, tea.Cmd) {
	a.inviteScreen.SetSnapshot(snap)

	switch snap.State {
	case invite.StateValidating:
		return a, a.validateCmd()

	case invite.StateAwaitingAuth:
		a.statusMsg = "Sign in to accept your invite"
		a.statusIsError = false
		return a, nil

	case invite.StateReadyToAccept:
		if snap.AutoAccept {
			return a, a.acceptCmd()
		}
		return a, nil

	case invite.StateAccepted:
		a.statusMsg = "Invite accepted"
		a.statusIsError = false
		return a, a.loadPropertiesCmd()
	}

	return a, nil
}

func (a App) handleSignedIn(sess models.Session) (tea.Model, tea.Cmd) {
	a.session = &sess
	a.client.SetAccessToken(sess.AccessToken)
	a.accountScreen.SetIdentity(&sess.Identity)

	if err := a.store.SaveSession(sess); err != nil {
		logging.WithComponent("app").WithError(err).Warn("failed to persist session")
	}

	cmds := []tea.Cmd{
		a.loadPropertiesCmd(),
		func() tea.Msg {
			return InviteSnapshotMsg{Snap: a.coord.SignedIn(sess.Identity)}
		},
	}

	snap := a.coord.Snapshot()
	if snap.State == invite.StateAwaitingAuth {
		a.activeTab = TabInvite
	}

	return a, tea.Batch(cmds...)
}

func (a App) handleSignOut(switching bool) (tea.Model, tea.Cmd) {
	a.session = nil
	a.client.SetAccessToken("")
	a.accountScreen.SetIdentity(nil)
	a.activeTab = TabAccount

	if err := a.store.ClearSession(); err != nil {
		logging.WithComponent("app").WithError(err).Warn("failed to clear session")
	}

	if switching {
		return a, func() tea.Msg {
			return InviteSnapshotMsg{Snap: a.coord.SwitchAccount()}
		}
	}
	return a, nil
}

func (a *App) resolveCmd() tea.Cmd {
	src := a.source
	return func() tea.Msg {
		return InviteSnapshotMsg{Snap: a.coord.Resolve(src)}
	}
}

func (a *App) validateCmd() tea.Cmd {
	return func() tea.Msg {
		snap := a.coord.Validate(context.Background(), func(n int) {
			select {
			case a.attemptCh <- n:
			default:
			}
		})
		return InviteSnapshotMsg{Snap: snap}
	}
}

func (a *App) listenAttempts() tea.Cmd {
	return func() tea.Msg {
		n, ok := <-a.attemptCh
		if !ok {
			return nil
		}
		return ValidateAttemptMsg{Attempt: n}
	}
}

func (a *App) acceptCmd() tea.Cmd {
	return func() tea.Msg {
		return InviteSnapshotMsg{Snap: a.coord.Accept(context.Background())}
	}
}

func (a *App) retryCmd() tea.Cmd {
	return func() tea.Msg {
		return InviteSnapshotMsg{Snap: a.coord.Retry()}
	}
}

func (a *App) declineCmd() tea.Cmd {
	return func() tea.Msg {
		return InviteSnapshotMsg{Snap: a.coord.Decline()}
	}
}

func (a *App) authCmd(msg AccountSubmitMsg) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		var resp *api.AuthResponse
		var err error
		if msg.SignUp {
			resp, err = a.client.SignUp(ctx, msg.Email, msg.Password, msg.DisplayName)
		} else {
			resp, err = a.client.SignIn(ctx, msg.Email, msg.Password)
		}
		if err != nil {
			return SignInFailMsg{Err: err}
		}

		ident, err := api.IdentityFromToken(resp.AccessToken)
		if err != nil {
			return SignInFailMsg{Err: err}
		}

		return SignedInMsg{Session: models.Session{
			AccessToken: resp.AccessToken,
			Identity:    ident,
			CreatedAt:   time.Now(),
		}}
	}
}

func (a *App) loadPropertiesCmd() tea.Cmd {
	return func() tea.Msg {
		props, err := a.client.LinkedProperties(context.Background())
		if err != nil {
			return PropertiesFailMsg{Err: err}
		}
		return PropertiesLoadedMsg{Properties: props}
	}
}

func (a *App) isInputActive() bool {
	return a.activeTab == TabAccount && a.accountScreen.IsInputActive()
}

// isBlocking reports whether the accepting overlay holds the screen.
func (a *App) isBlocking() bool {
	return a.coord.Snapshot().State == invite.StateAccepting
}

func (a App) View() string {
	var b strings.Builder

	if a.isBlocking() {
		content := a.inviteScreen.View()
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, content)
	}

	b.WriteString(a.renderTabs())
	b.WriteString("\n\n")

	switch a.activeTab {
	case TabProperties:
		b.WriteString(a.propertiesScreen.View())
	case TabInvite:
		b.WriteString(a.inviteScreen.View())
	case TabAccount:
		b.WriteString(a.accountScreen.View())
	}

	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("1-3 switch tabs • ctrl+c quit"))

	if a.statusMsg != "" {
		b.WriteString("\n")
		if a.statusIsError {
			b.WriteString(errorStyle.Render("⚠ " + a.statusMsg))
		} else {
			b.WriteString(successStyle.Render("✓ " + a.statusMsg))
		}
	}

	return b.String()
}

func (a App) renderTabs() string {
	var tabs []string
	for i, name := range tabNames {
		if Tab(i) == a.activeTab {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}
