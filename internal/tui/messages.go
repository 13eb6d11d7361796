package tui

import (
	"rentlink/internal/invite"
	"rentlink/internal/models"
)

type InviteSnapshotMsg struct {
	Snap invite.Snapshot
}

type ValidateAttemptMsg struct {
	Attempt int
}

type InviteAcceptRequestMsg struct{}

type InviteRetryMsg struct{}

type InviteDeclineMsg struct{}

type InviteContinueMsg struct{}

type InviteSwitchAccountMsg struct{}

type GoToAccountMsg struct{}

type OpenPropertiesMsg struct{}

type AccountSubmitMsg struct {
	SignUp      bool
	Email       string
	Password    string
	DisplayName string
}

type SignedInMsg struct {
	Session models.Session
}

type SignInFailMsg struct {
	Err error
}

type SignedOutMsg struct{}

type RefreshPropertiesMsg struct{}

type PropertiesLoadedMsg struct {
	Properties []models.PropertyPreview
}

type PropertiesFailMsg struct {
	Err error
}

type StatusMsg struct {
	Message string
	IsError bool
}
