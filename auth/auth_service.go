// Package auth implements the two-step login protocol against the backend
// and owns every session transition: birth (with durable-write verification
// and rollback), logout, liveness checking and profile refresh.
package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/irdesk/go-client/api"
	"github.com/irdesk/go-client/cache"
	errs "github.com/irdesk/go-client/internal/errors"
	"github.com/irdesk/go-client/internal/utils"
	"github.com/irdesk/go-client/sessions"
	"github.com/irdesk/go-client/users"
)

// DeliveryMethod selects where the one-time code is sent.
type DeliveryMethod string

const (
	DeliverySMS   DeliveryMethod = "SMS"
	DeliveryEmail DeliveryMethod = "EMAIL"
)

const (
	sendCodePath   = "/auth/send-2fa"
	verifyCodePath = "/auth/verify-2fa"
	mePath         = "/auth/me"

	// Bounded wait before re-reading the durable store to confirm the
	// credential entry persisted. Guards against disabled cookies and
	// ITP-style eviction.
	defaultVerifyDelay = 100 * time.Millisecond

	cookieFailureMessage = "could not save your session; check that cookies are enabled and try again"
)

// Navigator performs client-side navigation after logout.
type Navigator interface {
	NavigateTo(route string)
}

type NavigatorFunc func(route string)

func (f NavigatorFunc) NavigateTo(route string) {
	f(route)
}

// Service drives the login protocol. State ownership: the service mutates
// the session store; callers own their own view of the
// anonymous/awaiting-code/authenticated progression.
type Service struct {
	backend *api.Backend
	client  *api.Client
	session *sessions.Store
	local   cache.Local

	nav          Navigator
	landingRoute string
	logger       zerolog.Logger
	verifyDelay  time.Duration
	sleep        func(time.Duration)
}

type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNavigator(nav Navigator) ServiceOption {
	return func(s *Service) {
		s.nav = nav
	}
}

func WithLandingRoute(route string) ServiceOption {
	return func(s *Service) {
		s.landingRoute = route
	}
}

// WithVerifyDelay sets the durable-write confirmation wait (primarily for
// testing).
func WithVerifyDelay(delay time.Duration) ServiceOption {
	return func(s *Service) {
		s.verifyDelay = delay
	}
}

// WithSleep sets the sleep function (primarily for testing)
func WithSleep(sleep func(time.Duration)) ServiceOption {
	return func(s *Service) {
		s.sleep = sleep
	}
}

// New initializes the auth service with required dependencies.
func New(backend *api.Backend, client *api.Client, session *sessions.Store, local cache.Local, options ...ServiceOption) (*Service, error) {
	if backend == nil {
		return nil, errors.New("[auth.New] backend is required")
	}
	if client == nil {
		return nil, errors.New("[auth.New] client is required")
	}
	if session == nil {
		return nil, errors.New("[auth.New] session store is required")
	}
	if local == nil {
		return nil, errors.New("[auth.New] local cache is required")
	}

	s := &Service{
		backend:      backend,
		client:       client,
		session:      session,
		local:        local,
		nav:          NavigatorFunc(func(string) {}),
		landingRoute: "/",
		logger:       zerolog.Nop(),
		verifyDelay:  defaultVerifyDelay,
		sleep:        time.Sleep,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// CodeDelivery reports where the one-time code was dispatched.
type CodeDelivery struct {
	Message string `json:"message"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Login is the full authenticated payload returned by a successful code
// verification.
type Login struct {
	AccessToken string
	User        *users.User
	Level       string
}

// VerifyRequest carries the credentials plus the one-time code.
type VerifyRequest struct {
	Email          string
	Password       string
	Code           string
	RecaptchaToken string
}

// RequestCode asks the backend to dispatch a one-time code. The session is
// never touched; the operation is idempotent and may be retried.
func (s *Service) RequestCode(ctx context.Context, email, password string, method DeliveryMethod) (*CodeDelivery, error) {
	if email == "" {
		return nil, &errs.ApplicationError{Message: "email is required"}
	}
	if password == "" {
		return nil, &errs.ApplicationError{Message: "password is required"}
	}
	if method == "" {
		method = DeliverySMS
	}

	body := map[string]string{
		"email":    email,
		"password": password,
		"method":   string(method),
	}

	var delivery CodeDelivery
	if err := s.backend.Post(ctx, sendCodePath, body, &delivery); err != nil {
		return nil, err
	}

	delivery.Message = utils.FirstNonEmpty(delivery.Message, "verification code sent")
	return &delivery, nil
}

type verifyResponse struct {
	AccessToken string          `json:"access_token"`
	User        json.RawMessage `json:"user"`
	Level       string          `json:"level"`
}

// VerifyCode exchanges credentials plus the one-time code for a session.
// This is the only place a session is born: the credential token and the
// sanitized profile are written together, the durable store is re-read to
// confirm the token entry persisted, and on confirmation failure all cells
// are rolled back so no observer ever sees a partial session.
func (s *Service) VerifyCode(ctx context.Context, req VerifyRequest) (*Login, error) {
	if req.Email == "" {
		return nil, &errs.ApplicationError{Message: "email is required"}
	}
	if req.Password == "" {
		return nil, &errs.ApplicationError{Message: "password is required"}
	}
	if req.Code == "" {
		return nil, &errs.ApplicationError{Message: "verification code is required"}
	}

	body := map[string]string{
		"email":    req.Email,
		"password": req.Password,
		"code":     req.Code,
	}
	if req.RecaptchaToken != "" {
		body["recaptchaToken"] = req.RecaptchaToken
	}

	var resp verifyResponse
	if err := s.backend.Post(ctx, verifyCodePath, body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, errors.New("[Service.VerifyCode] login response missing access token")
	}

	sanitized, err := users.Sanitize(resp.User)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.VerifyCode] sanitize user")
	}

	if err := s.session.SetSession(resp.AccessToken, sanitized, resp.Level); err != nil {
		// Partial writes must not outlive the failure.
		if clearErr := s.session.Clear(); clearErr != nil {
			s.logger.Err(clearErr).Msg("session rollback after failed establishment")
		}
		return nil, errors.Wrap(err, "[Service.VerifyCode] establish session")
	}

	s.sleep(s.verifyDelay)
	present, err := s.session.TokenDurablyPresent()
	if err != nil || !present {
		if clearErr := s.session.Clear(); clearErr != nil {
			s.logger.Err(clearErr).Msg("session rollback after unconfirmed durable write")
		}
		if err != nil {
			s.logger.Err(err).Msg("durable token confirmation")
		}
		return nil, &errs.SessionIntegrityError{Message: cookieFailureMessage}
	}

	cache.EvictCashier(s.local)

	return &Login{AccessToken: resp.AccessToken, User: sanitized, Level: resp.Level}, nil
}

// Logout clears the session, evicts the cashier cache and navigates to the
// anonymous landing route. It always succeeds.
func (s *Service) Logout() {
	if err := s.session.Clear(); err != nil {
		s.logger.Err(err).Msg("clearing session on logout")
	}
	cache.EvictCashier(s.local)
	s.nav.NavigateTo(s.landingRoute)
}

// CheckLiveness reports whether the current session is still valid
// server-side. Any failure is authoritative: the session is torn down.
func (s *Service) CheckLiveness(ctx context.Context) bool {
	if !s.session.IsAuthenticated() {
		return false
	}

	if err := s.client.Get(ctx, mePath, nil); err != nil {
		// A 401 already forced logout through the client; other failure
		// kinds still need the teardown here.
		if s.session.IsAuthenticated() {
			s.Logout()
		}
		return false
	}
	return true
}

// RefreshProfile fetches the current profile, re-applies the sanitization
// projection and overwrites the stored profile. Failures are transient:
// they are logged and yield nil without clearing the session.
func (s *Service) RefreshProfile(ctx context.Context) *users.User {
	if !s.session.IsAuthenticated() {
		return nil
	}

	var raw json.RawMessage
	if err := s.client.Get(ctx, mePath, &raw); err != nil {
		s.logger.Err(err).Msg("refreshing user profile")
		return nil
	}

	sanitized, err := users.Sanitize(raw)
	if err != nil {
		s.logger.Err(err).Msg("sanitizing refreshed profile")
		return nil
	}

	if err := s.session.SetUser(sanitized); err != nil {
		s.logger.Err(err).Msg("storing refreshed profile")
		return nil
	}
	return sanitized
}
