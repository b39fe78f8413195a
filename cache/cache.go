// Package cache is the local, non-cookie key/value storage: the cashier
// cache that login and logout evict to force downstream revalidation, the
// dismissed-notification ids, and small UI preferences.
package cache

import (
	"strconv"
	"strings"
	"time"
)

// Well-known keys.
const (
	CashierStatusKey          = "casino_cashier_status"
	CashierDataKey            = "casino_cashier_data"
	DismissedNotificationsKey = "dismissed_notifications"
	SelectedTaxYearKey        = "client-selected-tax-year"
)

// Local is a process-local durable key/value store.
type Local interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// EvictCashier removes the cashier entries so the next dashboard visit
// revalidates against the backend. Called on login and on logout.
func EvictCashier(c Local) {
	_ = c.Delete(CashierStatusKey)
	_ = c.Delete(CashierDataKey)
}

// DismissedNotifications returns the stored dismissed-notification ids.
func DismissedNotifications(c Local) []string {
	raw, ok := c.Get(DismissedNotificationsKey)
	if !ok || raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

// DismissNotification records id as dismissed, once.
func DismissNotification(c Local, id string) error {
	ids := DismissedNotifications(c)
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	return c.Set(DismissedNotificationsKey, strings.Join(ids, ","))
}

// SelectedTaxYear returns the stored filing-year preference, defaulting to
// the current year.
func SelectedTaxYear(c Local, now func() time.Time) int {
	if raw, ok := c.Get(SelectedTaxYearKey); ok {
		if year, err := strconv.Atoi(raw); err == nil && year > 0 {
			return year
		}
	}
	return now().Year()
}

// SetSelectedTaxYear stores the filing-year preference.
func SetSelectedTaxYear(c Local, year int) error {
	return c.Set(SelectedTaxYearKey, strconv.Itoa(year))
}

// AvailableTaxYears lists the selectable filing years: the current year and
// the three before it, newest first.
func AvailableTaxYears(now func() time.Time) []int {
	current := now().Year()
	return []int{current, current - 1, current - 2, current - 3}
}
