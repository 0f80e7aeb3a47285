package oauthlink

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/social-post-imgur/pkg/account"
	apperrors "github.com/tendant/social-post-imgur/pkg/errors"
	"github.com/tendant/social-post-imgur/pkg/linkage"
	"github.com/tendant/social-post-imgur/pkg/metrics"
	"github.com/tendant/social-post-imgur/pkg/notification"
	"github.com/tendant/social-post-imgur/pkg/oauthclient"
	"github.com/tendant/social-post-imgur/pkg/oauthstate"
	"github.com/tendant/social-post-imgur/pkg/session"
)

// Service drives the connect and callback legs of the OAuth2 authorization-code flow
// and links the provider account to a local user.
type Service struct {
	client      oauthclient.Client
	states      *oauthstate.Store
	linkages    linkage.Repository
	directory   account.Directory
	notifier    notification.Notifier
	metrics     *metrics.Metrics
	scopes      []string
	allowSignup bool
}

// Option configures the Service
type Option func(*Service)

// WithScopes sets the scopes requested on connect
func WithScopes(scopes []string) Option {
	return func(s *Service) {
		s.scopes = scopes
	}
}

// WithAllowSignup lets anonymous visitors create a local account through the provider
func WithAllowSignup(allow bool) Option {
	return func(s *Service) {
		s.allowSignup = allow
	}
}

// WithNotifier sets where user-facing notices go
func WithNotifier(notifier notification.Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a linking service for one provider
func NewService(client oauthclient.Client, states *oauthstate.Store, linkages linkage.Repository, directory account.Directory, opts ...Option) *Service {
	s := &Service{
		client:    client,
		states:    states,
		linkages:  linkages,
		directory: directory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the provider identifier this service links
func (s *Service) Provider() string {
	return s.client.Name()
}

// ConnectResult is the outcome of Connect.
type ConnectResult struct {
	AuthURL string
	Phase   Phase
}

// Connect issues a fresh state for the session and returns the provider consent URL.
func (s *Service) Connect(ctx context.Context, sessionID string) (*ConnectResult, error) {
	if sessionID == "" {
		return &ConnectResult{Phase: PhaseError}, apperrors.InvalidInput("session", "session id is required")
	}

	pending, err := s.states.Issue(ctx, sessionID)
	if err != nil {
		slog.Error("Failed to issue OAuth2 state", "provider", s.Provider(), "error", err)
		s.notify(ctx, sessionID, notification.KindError, UserMessage(s.label(), apperrors.ErrCodeInternal))
		return &ConnectResult{Phase: PhaseError}, apperrors.InternalWrap(err, "failed to start login")
	}

	authURL := s.client.AuthorizationURL(pending.State, s.scopes)
	slog.Info("OAuth2 flow initiated", "provider", s.Provider(), "state_prefix", pending.State[:8])

	return &ConnectResult{
		AuthURL: authURL,
		Phase:   PhaseAwaitingCallback,
	}, nil
}

// CallbackRequest carries the parameters the provider redirected back with.
type CallbackRequest struct {
	SessionID        string
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackResult describes where a callback ended.
type CallbackResult struct {
	Phase       Phase
	FailedPhase Phase // set when Phase is PhaseError

	Linkage        *linkage.Linkage
	LocalUserID    uuid.UUID
	Created        bool // a new linkage row was written
	AccountCreated bool // a new local account was registered

	// SessionID is the fresh session the user was signed in on. Empty unless the callback
	// signed the browser in; the caller must then switch the browser to it.
	SessionID string
}

// Callback completes the flow. Any failure returns a structured error whose code names
// the failure kind; the result records the phase it happened in.
func (s *Service) Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	res := &CallbackResult{Phase: PhaseAwaitingCallback}
	fail := func(err *apperrors.Error) (*CallbackResult, error) {
		res.FailedPhase = res.Phase
		res.Phase = PhaseError
		s.report(ctx, req, res.FailedPhase, err)
		return res, err
	}

	if req.Error != "" {
		return fail(apperrors.Newf(apperrors.ErrCodeUserCancelled, "authorization declined: %s", req.Error).
			WithDetail("provider_error", req.Error))
	}

	res.Phase = PhaseVerifying
	if req.State == "" {
		return fail(apperrors.New(apperrors.ErrCodeStateMismatch, "callback has no state"))
	}
	ok, err := s.states.ConsumeAndVerify(ctx, req.SessionID, req.State)
	if err != nil {
		return fail(apperrors.InternalWrap(err, "failed to verify state"))
	}
	if !ok {
		return fail(apperrors.New(apperrors.ErrCodeStateMismatch, "state is unknown, expired or already used"))
	}

	res.Phase = PhaseExchanging
	if req.Code == "" {
		return fail(apperrors.New(apperrors.ErrCodeAuthExchangeFailed, "callback has no authorization code"))
	}
	token, err := s.client.Exchange(ctx, req.Code)
	if err != nil {
		return fail(ensureCode(err, apperrors.ErrCodeAuthExchangeFailed, "token exchange failed"))
	}

	res.Phase = PhaseFetchingProfile
	profile, err := s.client.FetchProfile(ctx, token)
	if err != nil {
		return fail(ensureCode(err, apperrors.ErrCodeProfileFetchFailed, "profile fetch failed"))
	}
	if profile.ProviderUserID == "" {
		return fail(apperrors.New(apperrors.ErrCodeProfileFetchFailed, "profile has no account id"))
	}

	res.Phase = PhaseLinking
	localUserID, signIn, accountCreated, lerr := s.resolveLocalUser(ctx, req.SessionID, profile)
	if lerr != nil {
		return fail(lerr)
	}
	res.LocalUserID = localUserID
	res.AccountCreated = accountCreated

	l, created, err := s.linkages.Upsert(ctx, linkage.UpsertParams{
		Provider:       s.Provider(),
		ProviderUserID: profile.ProviderUserID,
		LocalUserID:    localUserID,
		Token: linkage.Token{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			TokenType:    token.TokenType,
			Expiry:       token.Expiry,
		},
		DisplayName: profile.DisplayName,
	})
	if err != nil {
		if accountCreated {
			s.discardAccount(ctx, localUserID)
			res.LocalUserID = uuid.Nil
			res.AccountCreated = false
		}
		return fail(structured(err, "failed to store linkage"))
	}
	res.Linkage = l
	res.Created = created

	// Signing in never promotes the session id the browser arrived with.
	noticeSession := req.SessionID
	if signIn {
		rotated, err := session.GenerateID()
		if err != nil {
			return fail(apperrors.InternalWrap(err, "failed to rotate session"))
		}
		if err := s.directory.SignIn(ctx, rotated, localUserID); err != nil {
			return fail(apperrors.InternalWrap(err, "failed to sign in"))
		}
		res.SessionID = rotated
		noticeSession = rotated
	}

	res.Phase = PhaseDone
	slog.Info("Provider account linked",
		"provider", s.Provider(),
		"provider_user_id", profile.ProviderUserID,
		"user_id", localUserID,
		"created", created,
		"account_created", accountCreated)
	s.metrics.RecordLogin(s.Provider(), string(PhaseDone))
	s.notify(ctx, noticeSession, notification.KindInfo, s.label()+" account linked.")
	return res, nil
}

// discardAccount removes an account created for a linkage that could not be stored,
// as happens when another callback links the same provider account first.
func (s *Service) discardAccount(ctx context.Context, userID uuid.UUID) {
	if err := s.directory.DeleteAccount(ctx, userID); err != nil {
		slog.Error("Failed to delete unused account", "user_id", userID, "error", err)
	}
}

// resolveLocalUser picks the local user to link to. signIn is true when the session must be
// switched to that user.
func (s *Service) resolveLocalUser(ctx context.Context, sessionID string, profile *oauthclient.Profile) (uuid.UUID, bool, bool, *apperrors.Error) {
	current, ok, err := s.directory.CurrentUserID(ctx, sessionID)
	if err != nil {
		return uuid.Nil, false, false, apperrors.InternalWrap(err, "failed to resolve current user")
	}
	if ok {
		return current, false, false, nil
	}

	existing, err := s.linkages.Get(ctx, s.Provider(), profile.ProviderUserID)
	switch {
	case err == nil:
		return existing.LocalUserID, true, false, nil
	case !apperrors.IsCode(err, apperrors.ErrCodeNotFound):
		return uuid.Nil, false, false, apperrors.InternalWrap(err, "failed to look up linkage")
	}

	if !s.allowSignup {
		return uuid.Nil, false, false, apperrors.New(apperrors.ErrCodeSignupDisabled, "no signed-in user and sign-up is disabled")
	}
	id, err := s.directory.CreateAccount(ctx, profile.DisplayName)
	if err != nil {
		return uuid.Nil, false, false, apperrors.InternalWrap(err, "failed to create account")
	}
	return id, true, true, nil
}

func (s *Service) report(ctx context.Context, req CallbackRequest, phase Phase, err *apperrors.Error) {
	code := err.Code
	attrs := []any{"provider", s.Provider(), "phase", phase, "code", code, "error", err}

	switch code {
	case apperrors.ErrCodeUserCancelled:
		slog.Info("OAuth2 authorization cancelled", append(attrs, "description", req.ErrorDescription)...)
	case apperrors.ErrCodeStateMismatch:
		slog.Warn("OAuth2 state mismatch, possible CSRF or replayed callback", attrs...)
	default:
		slog.Error("OAuth2 callback failed", attrs...)
	}

	s.metrics.RecordLogin(s.Provider(), string(code))
	s.notify(ctx, req.SessionID, notification.KindError, UserMessage(s.label(), code))
}

func (s *Service) notify(ctx context.Context, sessionID string, kind notification.Kind, text string) {
	if s.notifier == nil || sessionID == "" {
		return
	}
	if err := s.notifier.Notify(ctx, sessionID, kind, text); err != nil {
		slog.Error("Failed to send notice", "error", err)
	}
}

func (s *Service) label() string {
	name := s.Provider()
	if name == "" {
		return "Provider"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// UserMessage returns the generic text shown to the user for a failure kind.
// Provider payloads and technical detail never appear in it.
func UserMessage(provider string, code apperrors.ErrorCode) string {
	switch code {
	case apperrors.ErrCodeUserCancelled:
		return provider + " authorization was cancelled."
	case apperrors.ErrCodeStateMismatch:
		return "The login link is invalid or has expired. Please try again."
	case apperrors.ErrCodeAuthExchangeFailed, apperrors.ErrCodeProfileFetchFailed:
		return provider + " login failed. Please try again later."
	case apperrors.ErrCodeLinkConflict:
		return "This " + provider + " account is already linked to another user."
	case apperrors.ErrCodeSignupDisabled:
		return "Registration through " + provider + " is disabled. Sign in first to link your account."
	default:
		return "Something went wrong. Please try again."
	}
}

// ensureCode returns err itself when it already carries code want, otherwise err wrapped as want.
func ensureCode(err error, want apperrors.ErrorCode, message string) *apperrors.Error {
	var e *apperrors.Error
	if errors.As(err, &e) && e.Code == want {
		return e
	}
	return apperrors.Wrap(err, want, message)
}

// structured keeps a structured repository error as is.
func structured(err error, message string) *apperrors.Error {
	var e *apperrors.Error
	if errors.As(err, &e) {
		return e
	}
	return apperrors.InternalWrap(err, message)
}
