package adapters

import (
	"time"

	"audit-automate/internal/types"
	"audit-automate/utils"
)

// LowesAdapter handles capture for lowes.com product pages.
// Lowes renders media behind a gallery-expand button rather than a details accordion,
// and its screenshots are not cropped.
type LowesAdapter struct {
	*BaseAdapter
}

// LowesProfile returns the Lowes selectors and timings
func LowesProfile() Profile {
	return Profile{
		Retailer:       types.RetailerLowes,
		InitialWaitMin: 7 * time.Second,
		InitialWaitMax: 11 * time.Second,
		Popups: []string{
			"//button[contains(@aria-label, 'close')]",
			"//button[contains(translate(., 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), 'continue')]",
			"//div[@role='dialog']//button[contains(@class, 'close')]",
			"//button[@id='closeButton']",
		},
		DetailPredicates: []string{
			"//*[@id='galleryExpandBtn']",
		},
		Crop: false,
	}
}

// NewLowesAdapter creates a new Lowes adapter
func NewLowesAdapter(config *types.Config, logger types.Logger, sessions types.SessionFactory, pacer utils.Pacer) *LowesAdapter {
	return &LowesAdapter{
		BaseAdapter: NewBaseAdapter(config, logger, sessions, pacer, LowesProfile()),
	}
}
