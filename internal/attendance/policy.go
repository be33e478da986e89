package attendance

import (
	"fmt"
	"strconv"

	"rollcall/internal/config"
)

// FinePolicy resolves the currently configured fine amount. Fines capture the
// amount at creation time; changing the policy never rewrites existing rows.
type FinePolicy struct {
	settings *config.SettingsManager
}

// NewFinePolicy creates a FinePolicy over the settings manager.
func NewFinePolicy(settings *config.SettingsManager) *FinePolicy {
	return &FinePolicy{settings: settings}
}

// CurrentAmount returns the configured fine amount, or the default when
// unset.
func (p *FinePolicy) CurrentAmount() float64 {
	return p.settings.GetFineAmount()
}

// SetAmount updates the configured fine amount. The value must be
// non-negative.
func (p *FinePolicy) SetAmount(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("fine amount must be non-negative, got %v", amount)
	}
	return p.settings.UpdateSettings(map[string]string{
		config.KeyFineAmount: strconv.FormatFloat(amount, 'f', -1, 64),
	})
}
