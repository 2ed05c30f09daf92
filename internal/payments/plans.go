package payments

import (
	"errors"
	"fmt"

	"github.com/jetsocket/backend/internal/config"
)

type PlanID string

const (
	PlanHobby   PlanID = "hobby"
	PlanStartup PlanID = "startup"
	PlanScale   PlanID = "scale"
)

// planOrder is the display order of the pricing table.
var planOrder = []PlanID{PlanHobby, PlanStartup, PlanScale}

var (
	ErrInvalidPlan       = errors.New("invalid payment plan id")
	ErrPlanNotConfigured = errors.New("payment plan has no processor plan id")
	ErrPaymentsDisabled  = errors.New("payment processor is not configured")
)

type EffectKind string

const (
	EffectSubscription EffectKind = "subscription"
	EffectCredits      EffectKind = "credits"
)

// Effect is what a purchase grants. Amount is only set for credits.
type Effect struct {
	Kind   EffectKind `json:"kind"`
	Amount int        `json:"amount,omitempty"`
}

// Plan is a purchasable plan. Limits are display values; nothing in this
// service enforces them.
type Plan struct {
	ID                PlanID  `json:"id"`
	Name              string  `json:"name"`
	Effect            Effect  `json:"effect"`
	Price             float64 `json:"price"`
	ConnectionLimit   int     `json:"connection_limit"`
	DailyMessageLimit int     `json:"daily_message_limit"`
	ProcessorPlanID   string  `json:"-"`
}

var plans = map[PlanID]Plan{
	PlanHobby: {
		ID:                PlanHobby,
		Name:              "Hobby",
		Effect:            Effect{Kind: EffectSubscription},
		Price:             0,
		ConnectionLimit:   100,
		DailyMessageLimit: 200000,
	},
	PlanStartup: {
		ID:                PlanStartup,
		Name:              "Startup",
		Effect:            Effect{Kind: EffectSubscription},
		Price:             39.99,
		ConnectionLimit:   1000,
		DailyMessageLimit: 1000000,
	},
	PlanScale: {
		ID:                PlanScale,
		Name:              "Scale",
		Effect:            Effect{Kind: EffectSubscription},
		Price:             99.99,
		ConnectionLimit:   3000,
		DailyMessageLimit: 6000000,
	},
}

// ParsePlanID validates a plan id received from a client.
func ParsePlanID(s string) (PlanID, error) {
	id := PlanID(s)
	if _, ok := plans[id]; !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidPlan, s)
	}
	return id, nil
}

func PrettyPlanName(id PlanID) string {
	return plans[id].Name
}

// ConnectionLimit returns the plan's connection ceiling, or -1 for an
// unknown plan.
func ConnectionLimit(id PlanID) int {
	p, ok := plans[id]
	if !ok {
		return -1
	}
	return p.ConnectionLimit
}

// Catalog binds the static plans to the processor plan ids from config.
type Catalog struct {
	processorIDs map[PlanID]string
}

func NewCatalog(cfg config.PaymentsConfig) *Catalog {
	return &Catalog{processorIDs: map[PlanID]string{
		PlanHobby:   cfg.HobbyPlanID,
		PlanStartup: cfg.StartupPlanID,
		PlanScale:   cfg.ScalePlanID,
	}}
}

// Plans returns all plans in display order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(planOrder))
	for _, id := range planOrder {
		p := plans[id]
		p.ProcessorPlanID = c.processorIDs[id]
		out = append(out, p)
	}
	return out
}

// SubscriptionPlanIDs lists the plans sold as subscriptions.
func (c *Catalog) SubscriptionPlanIDs() []PlanID {
	var ids []PlanID
	for _, id := range planOrder {
		if plans[id].Effect.Kind == EffectSubscription {
			ids = append(ids, id)
		}
	}
	return ids
}

// ProcessorPlanID returns the processor variant id for a plan.
func (c *Catalog) ProcessorPlanID(id PlanID) (string, error) {
	if _, ok := plans[id]; !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidPlan, id)
	}
	v := c.processorIDs[id]
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrPlanNotConfigured, id)
	}
	return v, nil
}

// PlanForVariant maps a processor variant id back to a plan.
func (c *Catalog) PlanForVariant(variantID string) (PlanID, bool) {
	if variantID == "" {
		return "", false
	}
	for id, v := range c.processorIDs {
		if v == variantID {
			return id, true
		}
	}
	return "", false
}
