package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/irdesk/go-client/api"
	"github.com/irdesk/go-client/auth"
	"github.com/irdesk/go-client/cache"
	errs "github.com/irdesk/go-client/internal/errors"
	"github.com/irdesk/go-client/sessions"
	"github.com/irdesk/go-client/store"
	"github.com/irdesk/go-client/store/storefakes"
)

const (
	testEmail    = "ana@example.com"
	testPassword = "password123"
	testCode     = "123456"
	testToken    = "access-token-1"
)

const verifySuccessBody = `{
	"access_token": "access-token-1",
	"level": "gold",
	"user": {
		"id": "user-1",
		"name": "Ana Souza",
		"email": "ana@example.com",
		"passwordHash": "must-not-persist",
		"role": {"id": "role-1", "name": "Manager", "canManageTeam": true},
		"tenant": {"id": "tenant-1", "name": "Acme", "primaryColor": "blue", "secondaryColor": "slate"}
	}
}`

// testFixture holds all test dependencies
type testFixture struct {
	durable  *storefakes.FakeStore
	local    cache.Local
	session  *sessions.Store
	client   *api.Client
	service  *auth.Service
	server   *httptest.Server
	handlers map[string]http.HandlerFunc

	lock  sync.Mutex
	calls map[string]int
	nav   []string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		durable:  storefakes.NewFakeStore(),
		local:    cache.NewMemory(),
		handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lock.Lock()
		f.calls[r.URL.Path]++
		handler := f.handlers[r.URL.Path]
		f.lock.Unlock()

		if handler == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	session, err := sessions.New(f.durable, store.SessionAttributes(time.Hour, false))
	require.NoError(t, err)
	f.session = session

	backend, err := api.NewBackend(f.server.URL)
	require.NoError(t, err)

	client, err := api.NewClient(backend, session)
	require.NoError(t, err)
	f.client = client

	service, err := auth.New(backend, client, session, f.local,
		auth.WithVerifyDelay(0),
		auth.WithSleep(func(time.Duration) {}),
		auth.WithNavigator(auth.NavigatorFunc(func(route string) {
			f.lock.Lock()
			defer f.lock.Unlock()
			f.nav = append(f.nav, route)
		})),
	)
	require.NoError(t, err)
	f.service = service
	client.SetUnauthorizedHandler(service.Logout)

	return f
}

func (f *testFixture) handle(path string, handler http.HandlerFunc) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.handlers[path] = handler
}

func (f *testFixture) callCount(path string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[path]
}

func (f *testFixture) navRoutes() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.nav...)
}

func jsonResponse(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func (f *testFixture) requireAnonymous(t *testing.T) {
	t.Helper()
	require.False(t, f.session.IsAuthenticated())
	require.Empty(t, f.session.AccessToken())
	require.Nil(t, f.session.User())
	require.Empty(t, f.session.Level())
}

func TestRequestCodeValidation(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.RequestCode(context.Background(), "", testPassword, auth.DeliverySMS)
	var appErr *errs.ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "email is required", appErr.Message)

	_, err = f.service.RequestCode(context.Background(), testEmail, "", auth.DeliverySMS)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "password is required", appErr.Message)

	require.Zero(t, f.callCount("/auth/send-2fa"))
	f.requireAnonymous(t)
}

func TestRequestCodeSuccess(t *testing.T) {
	f := setupTestFixture(t)
	f.handle("/auth/send-2fa", jsonResponse(http.StatusOK, `{"message":"code sent","phone":"+55 11 9****-1234"}`))

	delivery, err := f.service.RequestCode(context.Background(), testEmail, testPassword, auth.DeliverySMS)
	require.NoError(t, err)
	require.Equal(t, "code sent", delivery.Message)
	require.Equal(t, "+55 11 9****-1234", delivery.Phone)

	// Requesting a code never touches the session.
	f.requireAnonymous(t)
}

func TestRequestCodeInBandError(t *testing.T) {
	f := setupTestFixture(t)
	f.handle("/auth/send-2fa", jsonResponse(http.StatusOK, `{"error":1,"message":"wrong password","status":"UNAUTHORIZED"}`))

	_, err := f.service.RequestCode(context.Background(), testEmail, testPassword, auth.DeliveryEmail)
	var appErr *errs.ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "wrong password", appErr.Message)
	require.Equal(t, "UNAUTHORIZED", appErr.Status)
	f.requireAnonymous(t)
}

func TestVerifyCodeSuccess(t *testing.T) {
	f := setupTestFixture(t)
	f.handle("/auth/verify-2fa", jsonResponse(http.StatusOK, verifySuccessBody))

	require.NoError(t, f.local.Set(cache.CashierStatusKey, "cached"))
	require.NoError(t, f.local.Set(cache.CashierDataKey, "cached"))

	login, err := f.service.VerifyCode(context.Background(), auth.VerifyRequest{
		Email:    testEmail,
		Password: testPassword,
		Code:     testCode,
	})
	require.NoError(t, err)
	require.Equal(t, testToken, login.AccessToken)
	require.Equal(t, "gold", login.Level)
	require.Equal(t, "Ana Souza", login.User.Name)
	require.True(t, login.User.Role.CanManageTeam)

	require.True(t, f.session.IsAuthenticated())
	require.Equal(t, testToken, f.session.AccessToken())
	require.Equal(t, "gold", f.session.Level())

	// Cashier cache must be evicted to force downstream revalidation.
	_, ok := f.local.Get(cache.CashierStatusKey)
	require.False(t, ok)
	_, ok = f.local.Get(cache.CashierDataKey)
	require.False(t, ok)
}

// Backend answers HTTP 200 with an in-band error: typed failure, session
// untouched.
func TestVerifyCodeInBandError(t *testing.T) {
	f := setupTestFixture(t)
	f.handle("/auth/verify-2fa", jsonResponse(http.StatusOK, `{"error":1,"message":"invalid code"}`))

	_, err := f.service.VerifyCode(context.Background(), auth.VerifyRequest{
		Email:    testEmail,
		Password: testPassword,
		Code:     "000000",
	})

	var appErr *errs.ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "invalid code", appErr.Message)
	f.requireAnonymous(t)
}

// The durable store silently drops the credential write: the partially
// established session must be fully rolled back and the failure must point
// the user at disabled cookies.
func TestVerifyCodeRollsBackWhenDurableWriteDropped(t *testing.T) {
	f := setupTestFixture(t)
	f.handle("/auth/verify-2fa", jsonResponse(http.StatusOK, verifySuccessBody))
	f.durable.DropWrites = true

	_, err := f.service.VerifyCode(context.Background(), auth.VerifyRequest{
		Email:    testEmail,
		Password: testPassword,
		Code:     testCode,
	})

	var integrityErr *errs.SessionIntegrityError
	require.ErrorAs(t, err, &integrityErr)
	require.Contains(t, integrityErr.Message, "cookies")
	f.requireAnonymous(t)
}

func TestVerifyCodeValidation(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.VerifyCode(context.Background(), auth.VerifyRequest{Email: testEmail, Password: testPassword})
	var appErr *errs.ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "verification code is required", appErr.Message)
	require.Zero(t, f.callCount("/auth/verify-2fa"))
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.handle("/auth/verify-2fa", jsonResponse(http.StatusOK, verifySuccessBody))

	_, err := f.service.VerifyCode(context.Background(), auth.VerifyRequest{
		Email:    testEmail,
		Password: testPassword,
		Code:     testCode,
	})
	require.NoError(t, err)
	require.NoError(t, f.local.Set(cache.CashierStatusKey, "cached"))

	f.service.Logout()

	f.requireAnonymous(t)
	_, ok := f.local.Get(cache.CashierStatusKey)
	require.False(t, ok)
	require.Equal(t, []string{"/"}, f.navRoutes())
}

func TestCheckLivenessAnonymous(t *testing.T) {
	f := setupTestFixture(t)

	require.False(t, f.service.CheckLiveness(context.Background()))
	require.Zero(t, f.callCount("/auth/me"))
}

func TestCheckLivenessValidSession(t *testing.T) {
	f := setupTestFixture(t)
	f.handle("/auth/verify-2fa", jsonResponse(http.StatusOK, verifySuccessBody))
	f.handle("/auth/me", jsonResponse(http.StatusOK, `{"id":"user-1","name":"Ana Souza"}`))

	_, err := f.service.VerifyCode(context.Background(), auth.VerifyRequest{
		Email:    testEmail,
		Password: testPassword,
		Code:     testCode,
	})
	require.NoError(t, err)

	require.True(t, f.service.CheckLiveness(context.Background()))
	require.True(t, f.session.IsAuthenticated())
}

// A 401 on any authenticated call is authoritative: the session dies.
func TestCheckLivenessExpiredSession(t *testing.T) {
	f := setupTestFixture(t)
	f.handle("/auth/verify-2fa", jsonResponse(http.StatusOK, verifySuccessBody))
	f.handle("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := f.service.VerifyCode(context.Background(), auth.VerifyRequest{
		Email:    testEmail,
		Password: testPassword,
		Code:     testCode,
	})
	require.NoError(t, err)

	require.False(t, f.service.CheckLiveness(context.Background()))
	f.requireAnonymous(t)

	// One expiry, one logout: the forced logout from the 401 must not be
	// followed by a second teardown (and a second navigation) here.
	require.Equal(t, []string{"/"}, f.navRoutes())
}

// Liveness failures other than 401 still tear the session down.
func TestCheckLivenessServerErrorClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.handle("/auth/verify-2fa", jsonResponse(http.StatusOK, verifySuccessBody))
	f.handle("/auth/me", jsonResponse(http.StatusInternalServerError, `{"message":"boom"}`))

	_, err := f.service.VerifyCode(context.Background(), auth.VerifyRequest{
		Email:    testEmail,
		Password: testPassword,
		Code:     testCode,
	})
	require.NoError(t, err)

	require.False(t, f.service.CheckLiveness(context.Background()))
	f.requireAnonymous(t)
	require.Equal(t, []string{"/"}, f.navRoutes())
}

func TestRefreshProfileAnonymous(t *testing.T) {
	f := setupTestFixture(t)

	require.Nil(t, f.service.RefreshProfile(context.Background()))
	require.Zero(t, f.callCount("/auth/me"))
}

func TestRefreshProfileOverwritesStoredUser(t *testing.T) {
	f := setupTestFixture(t)
	f.handle("/auth/verify-2fa", jsonResponse(http.StatusOK, verifySuccessBody))
	f.handle("/auth/me", jsonResponse(http.StatusOK, `{"id":"user-1","name":"Ana Maria Souza","email":"ana@example.com"}`))

	_, err := f.service.VerifyCode(context.Background(), auth.VerifyRequest{
		Email:    testEmail,
		Password: testPassword,
		Code:     testCode,
	})
	require.NoError(t, err)

	refreshed := f.service.RefreshProfile(context.Background())
	require.NotNil(t, refreshed)
	require.Equal(t, "Ana Maria Souza", refreshed.Name)
	require.Equal(t, "Ana Maria Souza", f.session.User().Name)
}

// Refresh failures are transient: the session stays alive, unlike liveness
// failures.
func TestRefreshProfileFailureKeepsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.handle("/auth/verify-2fa", jsonResponse(http.StatusOK, verifySuccessBody))
	f.handle("/auth/me", jsonResponse(http.StatusInternalServerError, `{"message":"boom"}`))

	_, err := f.service.VerifyCode(context.Background(), auth.VerifyRequest{
		Email:    testEmail,
		Password: testPassword,
		Code:     testCode,
	})
	require.NoError(t, err)

	require.Nil(t, f.service.RefreshProfile(context.Background()))
	require.True(t, f.session.IsAuthenticated())
	require.Equal(t, "Ana Souza", f.session.User().Name)
}
