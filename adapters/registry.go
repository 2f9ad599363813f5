package adapters

import (
	"fmt"

	"audit-automate/internal/types"
	"audit-automate/utils"
)

// Registry maps retailers to their auditors
type Registry struct {
	auditors map[types.Retailer]types.RetailerAuditor
}

// NewRegistry creates a registry with every supported retailer
func NewRegistry(config *types.Config, logger types.Logger, sessions types.SessionFactory, pacer utils.Pacer) *Registry {
	r := &Registry{auditors: make(map[types.Retailer]types.RetailerAuditor)}
	r.Register(NewHomeDepotAdapter(config, logger, sessions, pacer))
	r.Register(NewLowesAdapter(config, logger, sessions, pacer))
	return r
}

// Register adds or replaces the auditor for its retailer
func (r *Registry) Register(a types.RetailerAuditor) {
	r.auditors[a.Retailer()] = a
}

// Get returns the auditor for retailer
func (r *Registry) Get(retailer types.Retailer) (types.RetailerAuditor, error) {
	a, ok := r.auditors[retailer]
	if !ok {
		return nil, fmt.Errorf("%w: no auditor for %q", types.ErrUnknownRetailer, retailer)
	}
	return a, nil
}

// PromptName returns the instruction file name for retailer, falling back to the
// naming convention for retailers without an auditor
func (r *Registry) PromptName(retailer types.Retailer) string {
	if a, ok := r.auditors[retailer]; ok {
		return a.PromptName()
	}
	return fmt.Sprintf("prompt_%s.txt", retailer)
}
