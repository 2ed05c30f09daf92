package models

import "time"

// SubscriptionStatus mirrors the payment processor's subscription state.
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCancelAtPeriodEnd SubscriptionStatus = "cancel_at_period_end"
	SubscriptionStatusDeleted           SubscriptionStatus = "deleted"
)

// Valid reports whether s is one of the known statuses.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusPastDue, SubscriptionStatusCancelAtPeriodEnd, SubscriptionStatusDeleted:
		return true
	}
	return false
}

// User is a dashboard account. It owns zero or one Application.
type User struct {
	ID       uint   `gorm:"column:id;primaryKey" json:"id"`
	Email    string `gorm:"column:email;uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"column:password;size:255;not null" json:"-"`
	IsAdmin  bool   `gorm:"column:is_admin;default:false" json:"is_admin"`

	// Billing
	SubscriptionPlan       *string             `gorm:"column:subscription_plan;size:20" json:"subscription_plan"`
	SubscriptionStatus     *SubscriptionStatus `gorm:"column:subscription_status;size:30" json:"subscription_status"`
	PaymentProcessorUserID string              `gorm:"column:payment_processor_user_id;size:100" json:"-"`
	CheckoutSessionID      string              `gorm:"column:checkout_session_id;size:100" json:"-"`

	LastActiveAt *time.Time `gorm:"column:last_active_at" json:"last_active_at"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`

	// 2FA fields
	TwoFactorEnabled bool   `gorm:"column:two_factor_enabled;default:false" json:"two_factor_enabled"`
	TwoFactorSecret  string `gorm:"column:two_factor_secret;size:512" json:"-"`
}

func (User) TableName() string {
	return "users"
}
