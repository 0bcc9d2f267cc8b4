package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/heshen/BookStack-1/internal/auth"
	"github.com/heshen/BookStack-1/internal/metrics"
	"github.com/heshen/BookStack-1/internal/models"
	"github.com/heshen/BookStack-1/internal/store"

	"github.com/google/uuid"
)

// UserStore is the slice of persistence the reconciler depends on.
type UserStore interface {
	// GetUserByEmail returns store.ErrRecordNotFound when no user owns the
	// email address.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// CreateUser persists a new user in a single atomic insert. It returns
	// store.ErrEmailConflict when the email unique index rejects the row.
	CreateUser(ctx context.Context, user *models.User) error
}

// Provisioner prepares a newly created account: default role membership and
// a best-effort avatar.
type Provisioner interface {
	AttachDefaultRole(ctx context.Context, user *models.User) error
	FetchAndAssignAvatar(ctx context.Context, user *models.User) error
}

// GroupSyncer keeps local role membership aligned with an external
// directory for the authenticated identity.
type GroupSyncer interface {
	ShouldSync() bool
	Sync(ctx context.Context, user *models.User, identifier string) error
}

// DuplicateIdentityError is returned when an external identity resolves to
// an email address another user already owns. Creating the account would
// silently merge two distinct identities, so the login is rejected instead.
type DuplicateIdentityError struct {
	Email string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf(
		"a user with the email %s already exists but with different credentials", e.Email)
}

// decision is the branch of the reconciliation tree a login attempt takes.
type decision int

const (
	decideLogin     decision = iota // identity already linked to a local user
	decideNeedEmail                 // no email available, the user must supply one
	decideProvision                 // create a local account with the working email
)

// classify derives the branch from the three facts the decision depends
// on. Kept pure so every branch is independently testable.
func classify(exists, hasAssertionEmail, hasRequestEmail bool) decision {
	switch {
	case exists:
		return decideLogin
	case !hasAssertionEmail && !hasRequestEmail:
		return decideNeedEmail
	default:
		return decideProvision
	}
}

// OutcomeState is the terminal state of a reconciliation.
type OutcomeState int

const (
	// StateLoggedIn means the identity now maps to a persisted user and a
	// session may be established for it.
	StateLoggedIn OutcomeState = iota

	// StateNeedEmail means the login cannot proceed until the user supplies
	// an email address. No user was created and no session may survive this
	// outcome; the caller must tear down anything the backend established.
	StateNeedEmail
)

// Outcome is the result of reconciling one identity assertion.
type Outcome struct {
	State       OutcomeState
	User        *models.User // set when State is StateLoggedIn
	Provisioned bool         // true when the user was created by this attempt

	// SyncErr reports a failed group sync. The login stands either way;
	// callers surface the failure without revoking the session.
	SyncErr error
}

// Reconciler maps externally-verified identity assertions onto local user
// records. It owns the post-authentication decision tree: link to an
// existing account, provision a new one, ask for a missing email, or
// reject a colliding identity.
type Reconciler struct {
	store       UserStore
	provisioner Provisioner
	syncer      GroupSyncer
	metrics     metrics.Recorder
}

func NewReconciler(
	userStore UserStore,
	provisioner Provisioner,
	syncer GroupSyncer,
	recorder metrics.Recorder,
) *Reconciler {
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}
	return &Reconciler{
		store:       userStore,
		provisioner: provisioner,
		syncer:      syncer,
		metrics:     recorder,
	}
}

// Reconcile resolves an assertion against the user table. requestEmail is
// the email the user typed into the login form, if any; it is adopted only
// when the backend supplied none.
//
// Ordering is load-bearing: the collision check happens strictly before
// any persistence, persistence and role/avatar assignment before group
// sync, and group sync before the caller picks a redirect.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	assertion auth.Assertion,
	requestEmail string,
) (*Outcome, error) {
	method := string(assertion.Method)

	switch classify(assertion.Exists, assertion.Email != "", requestEmail != "") {
	case decideNeedEmail:
		r.metrics.RecordLogin(method, metrics.OutcomeNeedEmail)
		return &Outcome{State: StateNeedEmail}, nil

	case decideLogin:
		outcome := &Outcome{State: StateLoggedIn, User: assertion.User}
		r.syncGroups(ctx, outcome, assertion)
		r.metrics.RecordLogin(method, metrics.OutcomeSuccess)
		return outcome, nil
	}

	// Provisioning path. Adopt the user-supplied email when the backend
	// delivered none.
	email := assertion.Email
	if email == "" {
		email = requestEmail
	}

	// Fast-path collision check. The unique index on users.email remains
	// the authoritative guard against a concurrent insert.
	existing, err := r.store.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		r.metrics.RecordLogin(method, metrics.OutcomeDuplicate)
		return nil, &DuplicateIdentityError{Email: email}
	}

	user := r.newUser(assertion, email)
	if err := r.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailConflict) {
			// Lost the race to another request provisioning the same email.
			r.metrics.RecordLogin(method, metrics.OutcomeDuplicate)
			return nil, &DuplicateIdentityError{Email: email}
		}
		r.metrics.RecordLogin(method, metrics.OutcomeStoreError)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := r.provisioner.AttachDefaultRole(ctx, user); err != nil {
		r.metrics.RecordLogin(method, metrics.OutcomeStoreError)
		return nil, fmt.Errorf("failed to attach default role: %w", err)
	}

	// Avatar assignment is best-effort: a missing avatar must never block
	// a login.
	if err := r.provisioner.FetchAndAssignAvatar(ctx, user); err != nil {
		r.metrics.RecordAvatarFetchFailure()
		log.Printf("[Reconcile] avatar fetch failed for user=%s: %v", user.Username, err)
	}

	outcome := &Outcome{State: StateLoggedIn, User: user, Provisioned: true}
	r.syncGroups(ctx, outcome, assertion)

	r.metrics.RecordUserProvisioned(method)
	r.metrics.RecordLogin(method, metrics.OutcomeSuccess)
	return outcome, nil
}

// syncGroups runs directory group sync when configured. A failure is
// reported on the outcome but never unwinds the already-granted login.
func (r *Reconciler) syncGroups(ctx context.Context, outcome *Outcome, assertion auth.Assertion) {
	if r.syncer == nil || !r.syncer.ShouldSync() {
		return
	}

	if err := r.syncer.Sync(ctx, outcome.User, assertion.Identifier); err != nil {
		outcome.SyncErr = err
		r.metrics.RecordGroupSyncFailure(string(assertion.Method))
		log.Printf("[Reconcile] group sync failed for user=%s: %v", outcome.User.Username, err)
	}
}

// newUser builds the fully-initialized record for the single insert. The
// assertion may carry a template user from the backend (full name,
// external id); missing fields are filled from the assertion itself.
func (r *Reconciler) newUser(assertion auth.Assertion, email string) *models.User {
	user := &models.User{}
	if assertion.User != nil {
		*user = *assertion.User
	}

	user.ID = uuid.New().String()
	user.Email = email
	if user.Username == "" {
		user.Username = assertion.Identifier
	}
	if user.Username == "" {
		user.Username = email
	}
	if user.AuthSource == "" {
		user.AuthSource = string(assertion.Method)
	}
	return user
}
