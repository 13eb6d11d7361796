package invite

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"rentlink/internal/api"
	"rentlink/internal/logging"
	"rentlink/internal/models"
	"rentlink/internal/retry"
	"rentlink/internal/storage"
)

// Authority is the remote side of the invite handshake. *api.Client
// implements it; tests substitute fakes.
type Authority interface {
	ValidateInvite(ctx context.Context, token string) (*api.ValidateResponse, error)
	AcceptInvite(ctx context.Context, token string) (*api.AcceptResponse, error)
	AcceptInviteNewAccount(ctx context.Context, token, displayName string) (*api.AcceptResponse, error)
	LinkedProperties(ctx context.Context) ([]models.PropertyPreview, error)
	ExchangeLegacyPropertyID(ctx context.Context, propertyID string) (string, error)
}

type ValidationStatus int

const (
	// ValidationValid: the token is currently acceptable. When Stale is set
	// the verdict came from the offline cache and must not authorize
	// acceptance.
	ValidationValid ValidationStatus = iota
	ValidationInvalid
	// ValidationUnreachable: the authority could not be reached and no
	// cached preview exists for the token.
	ValidationUnreachable
)

type Validation struct {
	Status        ValidationStatus
	Property      models.PropertyPreview
	IntendedEmail string
	Reason        FailureKind
	// Stale marks a preview served from the offline cache.
	Stale     bool
	Attempts  int
	CheckedAt time.Time
}

// Validator answers "is this token currently acceptable, and what does it
// unlock" with retry, backoff, and offline fallback to the cache. Validation
// never consumes the token; it is safe to call repeatedly.
type Validator struct {
	authority Authority
	store     *storage.Store
	policy    retry.Policy
	log       *logrus.Entry
}

func NewValidator(authority Authority, store *storage.Store, policy retry.Policy) *Validator {
	return &Validator{
		authority: authority,
		store:     store,
		policy:    policy,
		log:       logging.WithComponent("validator"),
	}
}

// Validate resolves a token against the live authority, retrying transport
// failures with exponential backoff. onAttempt, when non-nil, observes each
// attempt number for UI feedback. If every attempt fails to reach the
// authority, a cached preview for the same token is returned marked stale;
// with no cache the result is unreachable.
func (v *Validator) Validate(ctx context.Context, token string, onAttempt func(attempt int)) Validation {
	attempts := 0
	notify := func(n int) {
		attempts = n
		if onAttempt != nil {
			onAttempt(n)
		}
	}

	resp, err := retry.Do(ctx, v.policy, retryableCall, notify, func(ctx context.Context) (*api.ValidateResponse, error) {
		return v.authority.ValidateInvite(ctx, token)
	})
	if err != nil {
		if !retryableCall(err) {
			reason := failureFromError(err)
			v.log.WithField("reason", reason).Debug("token rejected by authority")
			return Validation{Status: ValidationInvalid, Reason: reason, Attempts: attempts, CheckedAt: time.Now()}
		}

		cached, cacheErr := v.store.GetCachedPreview(token)
		if cacheErr == nil && cached != nil {
			v.log.WithError(err).Info("authority unreachable, serving cached preview")
			return Validation{
				Status:    ValidationValid,
				Property:  cached.Property,
				Stale:     true,
				Attempts:  attempts,
				CheckedAt: cached.CachedAt,
			}
		}

		v.log.WithError(err).Warn("authority unreachable, no cached preview")
		return Validation{Status: ValidationUnreachable, Reason: FailNetwork, Attempts: attempts, CheckedAt: time.Now()}
	}

	if !resp.Valid {
		reason := failureFromCode(resp.Error)
		v.log.WithField("reason", reason).Debug("token no longer acceptable")
		return Validation{Status: ValidationInvalid, Reason: reason, Attempts: attempts, CheckedAt: time.Now()}
	}

	var property models.PropertyPreview
	if resp.Property != nil {
		property = *resp.Property
		// A live success always overwrites the cache entry for the token.
		if err := v.store.PutCachedPreview(token, property); err != nil {
			v.log.WithError(err).Warn("failed to cache preview")
		}
	}

	return Validation{
		Status:        ValidationValid,
		Property:      property,
		IntendedEmail: resp.IntendedEmail,
		Attempts:      attempts,
		CheckedAt:     time.Now(),
	}
}
