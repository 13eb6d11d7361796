package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"rentlink/internal/api"
	"rentlink/internal/config"
	"rentlink/internal/invite"
	"rentlink/internal/logging"
	"rentlink/internal/retry"
	"rentlink/internal/storage"
	"rentlink/internal/tui"
)

var (
	apiFlag      = flag.String("api", "", "Backend base URL (overrides RENTLINK_API_URL)")
	dbPathFlag   = flag.String("db", "", "Custom database path (for testing multiple instances)")
	inviteFlag   = flag.String("invite", "", "Invite token to accept")
	linkFlag     = flag.String("link", "", "Invite deep link (rentlink://invite/<token>)")
	propertyFlag = flag.String("property", "", "Expected property ID carried alongside the invite")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *apiFlag != "" {
		cfg.APIBaseURL = *apiFlag
	}
	if *dbPathFlag != "" {
		cfg.DBPath = *dbPathFlag
	}

	logging.Init(cfg.DataDir(), cfg.LogLevel)

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)

	policy := retry.Policy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
	}
	validator := invite.NewValidator(client, store, policy)
	acceptor := invite.NewAcceptor(client, validator)
	coord := invite.NewCoordinator(store, client, validator, acceptor)

	session, err := store.GetSession()
	if err != nil {
		logging.WithComponent("main").WithError(err).Warn("failed to restore session")
		session = nil
	}
	if session != nil {
		client.SetAccessToken(session.AccessToken)
		coord.SignedIn(session.Identity)
	}

	src := invite.Source{
		RouteToken:         *inviteFlag,
		DeepLink:           *linkFlag,
		ExpectedPropertyID: *propertyFlag,
	}

	app := tui.NewApp(store, client, coord, src, session)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
