package theme

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/irdesk/go-client/store"
)

// Applier owns the persisted theme settings and paints palettes onto a
// surface. It maps the abstract primary/muted roles onto the per-shade
// values of the chosen concrete color families, so UI consuming the
// abstract roles repaints without per-component changes.
type Applier struct {
	surface  Surface
	settings *store.Value[Settings]
	logger   zerolog.Logger
	nowTime  func() time.Time
}

type ApplierOption func(*Applier)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ApplierOption {
	return func(a *Applier) {
		a.nowTime = nowFunc
	}
}

func WithApplierLogger(logger zerolog.Logger) ApplierOption {
	return func(a *Applier) {
		a.logger = logger
	}
}

// NewApplier builds an applier persisting its settings into durable under
// SettingsEntryName with attrs (nominally a 30-day max-age).
func NewApplier(surface Surface, durable store.Store, attrs store.Attributes, options ...ApplierOption) (*Applier, error) {
	if surface == nil {
		return nil, errors.New("[NewApplier] surface is required")
	}
	if durable == nil {
		return nil, errors.New("[NewApplier] durable store is required")
	}

	settings, err := store.NewValue[Settings](durable, SettingsEntryName, attrs)
	if err != nil {
		return nil, errors.Wrap(err, "[NewApplier] settings cell")
	}

	a := &Applier{
		surface:  surface,
		settings: settings,
		logger:   zerolog.Nop(),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

type applyOptions struct {
	logo      string
	name      string
	tradeName string
	persist   bool
}

type ApplyOption func(*applyOptions)

func WithLogo(logo string) ApplyOption {
	return func(o *applyOptions) {
		o.logo = logo
	}
}

func WithName(name string) ApplyOption {
	return func(o *applyOptions) {
		o.name = name
	}
}

func WithTradeName(tradeName string) ApplyOption {
	return func(o *applyOptions) {
		o.tradeName = tradeName
	}
}

// WithoutPersist paints the palette without touching the durable settings.
func WithoutPersist() ApplyOption {
	return func(o *applyOptions) {
		o.persist = false
	}
}

// Apply paints the palette and, unless WithoutPersist was given, stores it.
// The durable write only happens when at least one field actually differs
// from the stored settings; identical palettes are a no-op, which is what
// prevents a read-apply-write-read loop between the durable store and the
// in-memory mirror.
func (a *Applier) Apply(primaryColor, secondaryColor string, options ...ApplyOption) error {
	if primaryColor == "" || secondaryColor == "" {
		return errors.New("[Applier.Apply] both colors are required")
	}

	opts := applyOptions{persist: true}
	for _, opt := range options {
		opt(&opts)
	}

	a.paint(primaryColor, secondaryColor)

	if !opts.persist {
		return nil
	}

	incoming := Settings{
		PrimaryColor:   primaryColor,
		SecondaryColor: secondaryColor,
		Logo:           opts.logo,
		Name:           opts.name,
		TradeName:      opts.tradeName,
	}
	if current := a.settings.Get(); current != nil && current.SameAs(incoming) {
		return nil
	}

	incoming.UpdatedAt = a.nowTime()
	if err := a.settings.Set(&incoming); err != nil {
		return errors.Wrap(err, "[Applier.Apply] persist settings")
	}
	a.logger.Debug().Str("primary", primaryColor).Str("secondary", secondaryColor).Msg("theme settings persisted")
	return nil
}

// Bootstrap paints the cached palette, or the fixed defaults when nothing
// is cached, without any durable write. Called once at process start so the
// UI is styled before any network round-trip completes.
func (a *Applier) Bootstrap() {
	if cached := a.settings.Get(); cached != nil && cached.PrimaryColor != "" && cached.SecondaryColor != "" {
		a.paint(cached.PrimaryColor, cached.SecondaryColor)
		return
	}
	a.paint(DefaultPrimaryColor, DefaultSecondaryColor)
}

// Settings returns the persisted theme settings, or nil when none exist.
func (a *Applier) Settings() *Settings {
	return a.settings.Get()
}

func (a *Applier) paint(primaryColor, secondaryColor string) {
	for _, shade := range Shades {
		a.surface.SetProperty(
			fmt.Sprintf("--color-primary-%s", shade),
			fmt.Sprintf("var(--color-%s-%s)", primaryColor, shade),
		)
		a.surface.SetProperty(
			fmt.Sprintf("--color-muted-%s", shade),
			fmt.Sprintf("var(--color-%s-%s)", secondaryColor, shade),
		)
	}
}
