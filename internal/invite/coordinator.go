package invite

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rentlink/internal/logging"
	"rentlink/internal/models"
	"rentlink/internal/storage"
)

// State is the coordinator's position in the acceptance handshake. Every
// transition goes through transitionLocked, which rejects calls arriving
// from an unexpected source state; there are no free-floating in-flight
// flags.
type State int

const (
	StateIdle State = iota
	StateResolvingToken
	StateValidating
	StateAwaitingAuth
	StateReadyToAccept
	StateAccepting
	StateAccepted
	StateDeclined
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingToken:
		return "resolving-token"
	case StateValidating:
		return "validating"
	case StateAwaitingAuth:
		return "awaiting-authentication"
	case StateReadyToAccept:
		return "ready-to-accept"
	case StateAccepting:
		return "accepting"
	case StateAccepted:
		return "accepted"
	case StateDeclined:
		return "declined"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Snapshot is the renderable view of the machine. The coordinator renders
// nothing itself; screens draw from this.
type Snapshot struct {
	State         State
	Token         string
	Kind          models.InviteKind
	Property      models.PropertyPreview
	IntendedEmail string
	// Stale marks a preview served from the offline cache; acceptance is
	// disabled until a live validation succeeds.
	Stale   bool
	Attempt int
	Failure FailureKind
	// NeedsAccountChoice: the signed-in email differs from the intended
	// recipient; the user must switch accounts or continue explicitly.
	NeedsAccountChoice bool
	// AutoAccept: validation succeeded for an authenticated, matching
	// identity, so acceptance proceeds without a tap.
	AutoAccept    bool
	PropertyName  string
	AlreadyLinked bool
	Authenticated bool
}

// Coordinator owns the in-memory acceptance state machine. All methods are
// safe to call from the event loop's command goroutines; long network work
// never runs under the lock.
type Coordinator struct {
	mu sync.Mutex

	state              State
	token              string
	kind               models.InviteKind
	expectedPropertyID string
	property           models.PropertyPreview
	intendedEmail      string
	stale              bool
	validatedAt        time.Time
	attempt            int
	failure            FailureKind
	validateInFlight   bool
	needsChoice        bool
	acceptedName       string
	alreadyLinked      bool
	identity           *models.Identity

	store     *storage.Store
	authority Authority
	validator *Validator
	acceptor  *Acceptor
	log       *logrus.Entry
}

func NewCoordinator(store *storage.Store, authority Authority, validator *Validator, acceptor *Acceptor) *Coordinator {
	return &Coordinator{
		state:     StateIdle,
		kind:      models.InviteKindToken,
		store:     store,
		authority: authority,
		validator: validator,
		acceptor:  acceptor,
		log:       logging.WithComponent("coordinator"),
	}
}

// Process-wide guard keyed by token. Two coordinator mounts can race on the
// same pending invite (an external bootstrap may read the store and spawn a
// second one); only the holder of the flight may issue the consuming call.
var flights = struct {
	mu     sync.Mutex
	tokens map[string]struct{}
}{tokens: make(map[string]struct{})}

func acquireFlight(token string) bool {
	flights.mu.Lock()
	defer flights.mu.Unlock()
	if _, held := flights.tokens[token]; held {
		return false
	}
	flights.tokens[token] = struct{}{}
	return true
}

func releaseFlight(token string) {
	flights.mu.Lock()
	defer flights.mu.Unlock()
	delete(flights.tokens, token)
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:              c.state,
		Token:              c.token,
		Kind:               c.kind,
		Property:           c.property,
		IntendedEmail:      c.intendedEmail,
		Stale:              c.stale,
		Attempt:            c.attempt,
		Failure:            c.failure,
		NeedsAccountChoice: c.needsChoice,
		PropertyName:       c.acceptedName,
		AlreadyLinked:      c.alreadyLinked,
		Authenticated:      c.identity != nil,
	}
	snap.AutoAccept = c.state == StateReadyToAccept &&
		c.identity != nil && !c.needsChoice && !c.stale
	return snap
}

// transitionLocked is the only way the state field changes. A call whose
// current state is not among from is rejected, which is what makes a
// double-tap or a stray duplicate command a no-op.
func (c *Coordinator) transitionLocked(next State, from ...State) bool {
	for _, f := range from {
		if c.state == f {
			c.log.WithFields(logrus.Fields{"from": c.state.String(), "to": next.String()}).Debug("transition")
			c.state = next
			return true
		}
	}
	c.log.WithFields(logrus.Fields{"at": c.state.String(), "rejected": next.String()}).Debug("transition rejected")
	return false
}

func (c *Coordinator) failLocked(kind FailureKind) {
	c.failure = kind
	c.state = StateFailed
	// Unrecoverable failures retire the parked invite; retryable ones keep
	// it so a force-quit mid-retry does not lose the flow.
	if !kind.Retryable() {
		if err := c.store.ClearPendingInvite(); err != nil {
			c.log.WithError(err).Warn("failed to clear pending invite")
		}
	}
}

func (c *Coordinator) pendingRecordLocked() models.PendingInvite {
	rec := models.PendingInvite{
		Value:   c.token,
		Kind:    c.kind,
		SavedAt: time.Now(),
	}
	if c.property.ID != "" || c.property.Name != "" {
		rec.Metadata = &models.PendingInviteMetadata{
			PropertyID:   c.property.ID,
			PropertyName: c.property.Name,
		}
	}
	return rec
}

// Resolve picks the token for this mount: route parameter first, then deep
// link, then the pending store. With no source at all the flow is dead on
// arrival.
func (c *Coordinator) Resolve(src Source) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.transitionLocked(StateResolvingToken, StateIdle) {
		return c.snapshotLocked()
	}
	c.expectedPropertyID = src.ExpectedPropertyID

	switch {
	case src.RouteToken != "":
		c.token = strings.TrimSpace(src.RouteToken)
		c.kind = models.InviteKindToken

	case src.DeepLink != "":
		token, propertyID, err := parseDeepLink(src.DeepLink)
		if err != nil {
			c.log.WithError(err).Info("unusable deep link")
			c.failLocked(FailMalformed)
			return c.snapshotLocked()
		}
		c.token = token
		c.kind = models.InviteKindToken
		if c.expectedPropertyID == "" {
			c.expectedPropertyID = propertyID
		}

	default:
		pending, err := c.store.GetPendingInvite()
		if err != nil || pending == nil {
			c.failLocked(FailMalformed)
			return c.snapshotLocked()
		}
		c.token = pending.Value
		c.kind = pending.Kind
		if c.expectedPropertyID == "" && pending.Metadata != nil {
			c.expectedPropertyID = pending.Metadata.PropertyID
		}
	}

	if c.token == "" {
		c.failLocked(FailMalformed)
		return c.snapshotLocked()
	}

	// resolving-token moves to validating automatically.
	c.transitionLocked(StateValidating, StateResolvingToken)
	return c.snapshotLocked()
}

// Validate resolves the token against the authority and decides whether to
// wait for authentication or hand over to acceptance. onAttempt surfaces
// retry progress to the caller.
func (c *Coordinator) Validate(ctx context.Context, onAttempt func(attempt int)) Snapshot {
	c.mu.Lock()
	if c.state != StateValidating || c.validateInFlight {
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}
	c.validateInFlight = true
	token := c.token
	kind := c.kind
	c.attempt = 0
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.validateInFlight = false
		c.mu.Unlock()
	}()

	if kind == models.InviteKindLegacyPropertyID {
		exchanged, err := c.authority.ExchangeLegacyPropertyID(ctx, token)
		if err != nil {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.state != StateValidating {
				return c.snapshotLocked()
			}
			c.failLocked(failureFromError(err))
			return c.snapshotLocked()
		}
		c.mu.Lock()
		if c.state != StateValidating {
			defer c.mu.Unlock()
			return c.snapshotLocked()
		}
		c.token = exchanged
		c.kind = models.InviteKindToken
		token = exchanged
		c.mu.Unlock()
	}

	res := c.validator.Validate(ctx, token, func(n int) {
		c.mu.Lock()
		c.attempt = n
		c.mu.Unlock()
		if onAttempt != nil {
			onAttempt(n)
		}
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateValidating {
		// Declined (or otherwise moved on) while the round trip was in
		// flight; the verdict no longer matters.
		return c.snapshotLocked()
	}

	switch res.Status {
	case ValidationUnreachable:
		c.failLocked(FailNetwork)

	case ValidationInvalid:
		c.failLocked(res.Reason)

	case ValidationValid:
		if c.expectedPropertyID != "" && res.Property.ID != "" && res.Property.ID != c.expectedPropertyID {
			c.log.WithFields(logrus.Fields{
				"expected": c.expectedPropertyID,
				"resolved": res.Property.ID,
			}).Warn("property mismatch, refusing invite")
			c.failLocked(FailMismatch)
			return c.snapshotLocked()
		}

		c.property = res.Property
		c.intendedEmail = res.IntendedEmail
		c.stale = res.Stale
		c.validatedAt = res.CheckedAt

		if c.identity == nil {
			// Park the invite and defer to the authentication flow.
			if err := c.store.SavePendingInvite(c.pendingRecordLocked()); err != nil {
				c.log.WithError(err).Error("failed to park invite")
				c.failLocked(FailGeneric)
				return c.snapshotLocked()
			}
			c.transitionLocked(StateAwaitingAuth, StateValidating)
		} else {
			c.needsChoice = c.intendedEmail != "" &&
				!strings.EqualFold(c.identity.Email, c.intendedEmail)
			c.transitionLocked(StateReadyToAccept, StateValidating)
		}
	}

	return c.snapshotLocked()
}

// Accept issues the consuming call. Calls arriving while one is already in
// flight, while the preview is stale, or before the wrong-account choice is
// made are no-ops.
func (c *Coordinator) Accept(ctx context.Context) Snapshot {
	c.mu.Lock()
	if c.state != StateReadyToAccept || c.identity == nil || c.needsChoice || c.stale {
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}
	token := c.token
	ident := *c.identity
	propertyID := c.property.ID
	validatedAt := c.validatedAt

	if !acquireFlight(token) {
		// Another mount is already consuming this token.
		c.log.Debug("accept skipped, token already in flight elsewhere")
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}
	c.transitionLocked(StateAccepting, StateReadyToAccept)
	c.mu.Unlock()
	defer releaseFlight(token)

	// Clear the store before the consuming call, not after: a second mount
	// spawned from the store must not re-attempt a token that is already in
	// flight. On retryable failure the record is re-armed below.
	if err := c.store.ClearPendingInvite(); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.log.WithError(err).Error("failed to clear pending invite before consume")
		c.state = StateFailed
		c.failure = FailGeneric
		return c.snapshotLocked()
	}

	res := c.acceptor.Accept(ctx, token, ident, propertyID, validatedAt)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch res.Kind {
	case ResultSuccess, ResultAlreadyLinked:
		c.acceptedName = res.PropertyName
		c.alreadyLinked = res.Kind == ResultAlreadyLinked
		c.transitionLocked(StateAccepted, StateAccepting)

	case ResultFailed:
		if res.Reason.Retryable() {
			if err := c.store.SavePendingInvite(c.pendingRecordLocked()); err != nil {
				c.log.WithError(err).Error("failed to re-arm pending invite")
			}
		}
		c.failure = res.Reason
		c.transitionLocked(StateFailed, StateAccepting)
	}
	return c.snapshotLocked()
}

// Retry re-enters validation after a retryable failure, or to refresh a
// stale offline preview.
func (c *Coordinator) Retry() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateFailed && !c.failure.Retryable() {
		return c.snapshotLocked()
	}
	if !c.transitionLocked(StateValidating, StateFailed, StateReadyToAccept) {
		return c.snapshotLocked()
	}
	c.failure = FailNone
	c.attempt = 0
	c.stale = false
	c.needsChoice = false
	return c.snapshotLocked()
}

// Decline abandons the invite. Not allowed mid-consume; a half-applied
// server-side mutation must not be walked away from silently.
func (c *Coordinator) Decline() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAccepting {
		return c.snapshotLocked()
	}
	if err := c.store.ClearPendingInvite(); err != nil {
		c.log.WithError(err).Warn("failed to clear pending invite on decline")
	}
	c.state = StateDeclined
	return c.snapshotLocked()
}

// SignedIn feeds an authentication transition into the machine as explicit
// input. A parked flow resumes by re-resolving from the store and
// re-validating; a verdict obtained before authentication completed is not
// trusted.
func (c *Coordinator) SignedIn(ident models.Identity) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.identity = &ident

	if c.state != StateAwaitingAuth {
		return c.snapshotLocked()
	}

	if pending, err := c.store.GetPendingInvite(); err == nil && pending != nil {
		c.token = pending.Value
		c.kind = pending.Kind
		if c.expectedPropertyID == "" && pending.Metadata != nil {
			c.expectedPropertyID = pending.Metadata.PropertyID
		}
	}

	c.attempt = 0
	c.failure = FailNone
	c.transitionLocked(StateValidating, StateAwaitingAuth)
	return c.snapshotLocked()
}

// ContinueAnyway accepts the recipient mismatch and releases the machine to
// accept on the current account.
func (c *Coordinator) ContinueAnyway() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateReadyToAccept {
		c.needsChoice = false
	}
	return c.snapshotLocked()
}

// SwitchAccount re-parks the invite and hands control back to the
// authentication flow so a different identity can claim it.
func (c *Coordinator) SwitchAccount() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReadyToAccept {
		return c.snapshotLocked()
	}
	if err := c.store.SavePendingInvite(c.pendingRecordLocked()); err != nil {
		c.log.WithError(err).Error("failed to park invite for account switch")
	}
	c.identity = nil
	c.needsChoice = false
	c.transitionLocked(StateAwaitingAuth, StateReadyToAccept)
	return c.snapshotLocked()
}
