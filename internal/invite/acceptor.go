package invite

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"rentlink/internal/api"
	"rentlink/internal/logging"
	"rentlink/internal/models"
)

// revalidateAfter is how old a validation verdict may be before the acceptor
// refreshes it ahead of the consuming call. Revocation while the user was
// finishing sign-up must surface before the token is spent.
const revalidateAfter = 30 * time.Second

type ResultKind string

const (
	ResultSuccess ResultKind = "success"
	// ResultAlreadyLinked: the identity is already linked to the property.
	// Idempotent success, not an error.
	ResultAlreadyLinked ResultKind = "already_linked"
	ResultFailed        ResultKind = "failed"
)

type Result struct {
	Kind         ResultKind
	PropertyName string
	Reason       FailureKind
}

// Acceptor performs the consuming call that links an identity to a property.
// Concurrency guards live in the Coordinator; the acceptor assumes it runs
// at most once at a time per token.
type Acceptor struct {
	authority Authority
	validator *Validator
	log       *logrus.Entry
}

func NewAcceptor(authority Authority, validator *Validator) *Acceptor {
	return &Acceptor{
		authority: authority,
		validator: validator,
		log:       logging.WithComponent("acceptor"),
	}
}

// Accept consumes the token for the given identity. propertyID, when known
// from validation, enables the already-linked short circuit without a
// consuming call. validatedAt is when the token last passed a live
// validation; stale verdicts are refreshed first.
func (a *Acceptor) Accept(ctx context.Context, token string, ident models.Identity, propertyID string, validatedAt time.Time) Result {
	if propertyID != "" {
		if props, err := a.authority.LinkedProperties(ctx); err == nil {
			for _, p := range props {
				if p.ID == propertyID {
					a.log.WithField("property", p.ID).Info("identity already linked, skipping consume")
					return Result{Kind: ResultAlreadyLinked, PropertyName: p.Name}
				}
			}
		}
	}

	if time.Since(validatedAt) > revalidateAfter {
		check := a.validator.Validate(ctx, token, nil)
		switch check.Status {
		case ValidationUnreachable:
			return Result{Kind: ResultFailed, Reason: FailNetwork}
		case ValidationInvalid:
			return Result{Kind: ResultFailed, Reason: check.Reason}
		}
		if check.Stale {
			// An offline cache hit cannot authorize consumption.
			return Result{Kind: ResultFailed, Reason: FailNetwork}
		}
	}

	var resp *api.AcceptResponse
	var err error
	if ident.Onboarded {
		resp, err = a.authority.AcceptInvite(ctx, token)
	} else {
		resp, err = a.authority.AcceptInviteNewAccount(ctx, token, ident.DisplayName)
	}
	if err != nil {
		reason := failureFromError(err)
		a.log.WithError(err).WithField("reason", reason).Warn("consuming call failed")
		return Result{Kind: ResultFailed, Reason: reason}
	}

	if resp.AlreadyLinked {
		return Result{Kind: ResultAlreadyLinked, PropertyName: resp.PropertyName}
	}
	if !resp.Success {
		a.log.WithField("error", resp.Error).Warn("authority refused accept")
		return Result{Kind: ResultFailed, Reason: FailGeneric}
	}

	a.log.WithField("property_name", resp.PropertyName).Info("invite accepted")
	return Result{Kind: ResultSuccess, PropertyName: resp.PropertyName}
}
