package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jetsocket/backend/internal/logger"
	"github.com/jetsocket/backend/internal/models"
	"github.com/jetsocket/backend/internal/payments"
	"gorm.io/gorm"
)

var payLog = logger.Get("payments")

// CheckoutProvider creates hosted checkout sessions.
type CheckoutProvider interface {
	Configured() bool
	CreateCheckout(ctx context.Context, p payments.CheckoutParams) (*payments.Session, error)
}

type SubscriptionService struct {
	db        *gorm.DB
	catalog   *payments.Catalog
	processor CheckoutProvider
	clientURL string
}

func NewSubscriptionService(db *gorm.DB, catalog *payments.Catalog, processor CheckoutProvider, clientURL string) *SubscriptionService {
	return &SubscriptionService{db: db, catalog: catalog, processor: processor, clientURL: clientURL}
}

// StartCheckout creates a processor checkout for plan and records the plan
// and session on the user. Processor failures are returned unchanged.
func (s *SubscriptionService) StartCheckout(ctx context.Context, user *models.User, plan string) (*payments.Session, error) {
	id, err := payments.ParsePlanID(plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s.processor == nil || !s.processor.Configured() {
		return nil, payments.ErrPaymentsDisabled
	}
	variant, err := s.catalog.ProcessorPlanID(id)
	if err != nil {
		return nil, err
	}

	session, err := s.processor.CreateCheckout(ctx, payments.CheckoutParams{
		VariantID:   variant,
		UserEmail:   user.Email,
		UserID:      strconv.FormatUint(uint64(user.ID), 10),
		RedirectURL: s.clientURL + "/checkout",
	})
	if err != nil {
		payLog.Warn("checkout failed", "user_id", user.ID, "plan", id, err)
		return nil, err
	}

	planStr := string(id)
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"subscription_plan":   planStr,
		"checkout_session_id": session.ID,
	}).Error; err != nil {
		return nil, fmt.Errorf("record checkout: %w", err)
	}
	user.SubscriptionPlan = &planStr
	user.CheckoutSessionID = session.ID

	payLog.Info("checkout session created", "user_id", user.ID, "plan", id, "session", session.ID)
	return session, nil
}

// ApplyWebhook updates the user's subscription from a processor event.
// Events that carry no subscription change are ignored.
func (s *SubscriptionService) ApplyWebhook(ctx context.Context, ev *payments.Event) error {
	status, ok := payments.StatusForEvent(ev.Name())
	if !ok {
		payLog.Debug("ignoring webhook event", "event", ev.Name())
		return nil
	}

	userID, err := ev.UserID()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	updates := map[string]interface{}{"subscription_status": string(status)}
	if cid := ev.CustomerID(); cid != "" {
		updates["payment_processor_user_id"] = cid
	}
	if plan, ok := s.catalog.PlanForVariant(ev.VariantID()); ok {
		updates["subscription_plan"] = string(plan)
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	payLog.Info("subscription updated", "user_id", userID, "event", ev.Name(), "status", status)
	return nil
}
