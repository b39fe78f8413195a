package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/irdesk/go-client/api"
	"github.com/irdesk/go-client/auth"
	"github.com/irdesk/go-client/cache/filecache"
	"github.com/irdesk/go-client/internal/config"
	errs "github.com/irdesk/go-client/internal/errors"
	"github.com/irdesk/go-client/sessions"
	"github.com/irdesk/go-client/store"
	"github.com/irdesk/go-client/store/filestore"
	"github.com/irdesk/go-client/tenants"
	"github.com/irdesk/go-client/theme"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	app, err := buildApp(c)
	if err != nil {
		return errors.Wrap(err, "buildApp")
	}

	// First paint: cached palette or defaults, before any network call.
	app.applier.Bootstrap()

	command := "status"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx := context.Background()
	switch command {
	case "login":
		return app.login(ctx)
	case "logout":
		app.auth.Logout()
		fmt.Println("logged out")
		return nil
	case "whoami":
		return app.whoami(ctx)
	case "tenant":
		return app.tenant(ctx)
	case "theme":
		return app.theme(ctx)
	case "status":
		return app.status(ctx)
	default:
		return errors.Errorf("unknown command %q (expected login, logout, whoami, tenant, theme or status)", command)
	}
}

type app struct {
	config  config.Config
	session *sessions.Store
	auth    *auth.Service
	tenants *tenants.Context
	applier *theme.Applier
	surface *theme.Document
}

func buildApp(c config.Config) (*app, error) {
	durable, err := filestore.New(filepath.Join(c.GetDataFolder(), "session.jar"))
	if err != nil {
		return nil, errors.Wrap(err, "filestore.New")
	}
	local, err := filecache.New(filepath.Join(c.GetDataFolder(), "cache.json"))
	if err != nil {
		return nil, errors.Wrap(err, "filecache.New")
	}

	session, err := sessions.New(durable, store.SessionAttributes(c.GetSessionMaxAge(), c.IsProduction()))
	if err != nil {
		return nil, errors.Wrap(err, "sessions.New")
	}

	backend, err := api.NewBackend(c.GetBaseURL(), api.WithLogger(log.Logger))
	if err != nil {
		return nil, errors.Wrap(err, "api.NewBackend")
	}
	client, err := api.NewClient(backend, session)
	if err != nil {
		return nil, errors.Wrap(err, "api.NewClient")
	}

	surface := theme.NewDocument()
	applier, err := theme.NewApplier(surface, durable,
		store.SessionAttributes(c.GetThemeMaxAge(), c.IsProduction()),
		theme.WithApplierLogger(log.Logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "theme.NewApplier")
	}

	authService, err := auth.New(backend, client, session, local,
		auth.WithLogger(log.Logger),
		auth.WithLandingRoute(c.GetLandingRoute()),
		auth.WithNavigator(auth.NavigatorFunc(func(route string) {
			log.Info().Str("route", route).Msg("navigate")
		})),
	)
	if err != nil {
		return nil, errors.Wrap(err, "auth.New")
	}
	client.SetUnauthorizedHandler(authService.Logout)

	tenantContext, err := tenants.NewContext(client, backend, applier,
		tenants.WithContextLogger(log.Logger),
		tenants.WithQueryParam(c.GetTenantQueryParam()),
		tenants.WithReservedSubdomains(c.GetReservedSubdomains()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "tenants.NewContext")
	}

	return &app{
		config:  c,
		session: session,
		auth:    authService,
		tenants: tenantContext,
		applier: applier,
		surface: surface,
	}, nil
}

func (a *app) login(ctx context.Context) error {
	reader := bufio.NewReader(os.Stdin)

	email := prompt(reader, "Email: ")
	password := prompt(reader, "Password: ")

	delivery, err := a.auth.RequestCode(ctx, email, password, auth.DeliverySMS)
	if err != nil {
		return err
	}
	fmt.Println(delivery.Message)

	code := prompt(reader, "Code: ")
	login, err := a.auth.VerifyCode(ctx, auth.VerifyRequest{Email: email, Password: password, Code: code})
	if err != nil {
		// Backend-signaled failures carry a user-facing message.
		if msg := errs.ApplicationMessage(err); msg != "" {
			fmt.Println(msg)
			return nil
		}
		return err
	}

	fmt.Printf("logged in as %s (%s)\n", login.User.Name, login.User.Email)
	if login.User.OnboardingStatus != "" && login.User.OnboardingStatus != "completed" {
		fmt.Printf("next step: %s\n", a.config.GetOnboardingRedirectRoute())
	}

	if _, err := a.tenants.GetOrFetch(ctx); err != nil {
		log.Warn().Err(err).Msg("tenant metadata not available")
	}
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if !a.session.IsAuthenticated() {
		fmt.Println("not logged in")
		return nil
	}
	user := a.auth.RefreshProfile(ctx)
	if user == nil {
		user = a.session.User()
	}
	if user == nil {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	if user.Role != nil {
		fmt.Printf("role: %s\n", user.Role.Name)
	}
	if user.Tenant != nil {
		fmt.Printf("tenant: %s\n", user.Tenant.Name)
	}
	return nil
}

func (a *app) tenant(ctx context.Context) error {
	t, err := a.tenants.GetOrFetch(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", t.Name, t.ID)
	if t.HasPalette() {
		fmt.Printf("palette: %s / %s\n", t.PrimaryColor, t.SecondaryColor)
	}
	return nil
}

func (a *app) theme(ctx context.Context) error {
	if a.session.IsAuthenticated() {
		if _, err := a.tenants.GetOrFetch(ctx); err != nil {
			log.Warn().Err(err).Msg("using cached palette")
		}
	}
	fmt.Print(a.surface.Render())
	return nil
}

func (a *app) status(ctx context.Context) error {
	if a.auth.CheckLiveness(ctx) {
		fmt.Println("session: active")
	} else {
		fmt.Println("session: anonymous")
	}
	branding := a.tenants.Branding()
	fmt.Printf("branding: %s / %s\n", branding.PrimaryColor, branding.SecondaryColor)
	return nil
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
