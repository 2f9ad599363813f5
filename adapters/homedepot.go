package adapters

import (
	"strings"
	"time"

	"audit-automate/internal/types"
	"audit-automate/utils"
)

// HomeDepotAdapter handles capture for homedepot.com product pages
type HomeDepotAdapter struct {
	*BaseAdapter
}

// HomeDepotProfile returns the Home Depot selectors and timings
func HomeDepotProfile() Profile {
	return Profile{
		Retailer:       types.RetailerHomeDepot,
		InitialWaitMin: 5 * time.Second,
		InitialWaitMax: 7 * time.Second,
		Popups: []string{
			"//*[@id='onetrust-accept-btn-handler']",
		},
		DetailPredicates: []string{
			"//div[@class='navlink-pso' and normalize-space(.)='Product Details']",
			"//button[normalize-space(.)='Product Details']",
			"//button[contains(translate(., 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), 'product details')]",
			"//button[@data-testid='product-details-accordion-button']",
			"//div[@id='product-details__panel--container']//button",
			"//a[normalize-space(.)='View More Details']",
			"//div[contains(@class, 'accordion-title') and contains(., 'Details')]",
		},
		AcceptDetail: acceptHomeDepotDetail,
		Crop:         true,
	}
}

// acceptHomeDepotDetail keeps elements that read like a details or specs expander
func acceptHomeDepotDetail(c Candidate) bool {
	text := strings.ToLower(c.Text)
	if c.Tag == "div" && strings.Contains(text, "product details") {
		return true
	}
	return strings.Contains(text, "detail") || strings.Contains(text, "spec") || strings.Contains(text, "view more")
}

// NewHomeDepotAdapter creates a new Home Depot adapter
func NewHomeDepotAdapter(config *types.Config, logger types.Logger, sessions types.SessionFactory, pacer utils.Pacer) *HomeDepotAdapter {
	return &HomeDepotAdapter{
		BaseAdapter: NewBaseAdapter(config, logger, sessions, pacer, HomeDepotProfile()),
	}
}
