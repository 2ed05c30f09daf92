package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jetsocket/backend/internal/models"
	"gorm.io/gorm"
)

const maxPageLimit = 200

// Page is a one-based pagination window.
type Page struct {
	Page  int
	Limit int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 50
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta describes a paginated result.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func newMeta(p Page, total int64) Meta {
	return Meta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: (total + int64(p.Limit) - 1) / int64(p.Limit),
	}
}

type PlatformStats struct {
	Users               int64            `json:"users"`
	Admins              int64            `json:"admins"`
	ActiveUsers24h      int64            `json:"active_users_24h"`
	Applications        int64            `json:"applications"`
	EnabledApplications int64            `json:"enabled_applications"`
	Connections         int64            `json:"connections"`
	Subscriptions       map[string]int64 `json:"subscriptions"`
	ContactMessages     int64            `json:"contact_messages"`
}

// AdminApplication is the operator view of an application. It carries no
// credentials other than the public key.
type AdminApplication struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Key            string    `json:"key"`
	Enabled        bool      `json:"enabled"`
	MaxConnections int       `json:"max_connections"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newAdminApplication(app *models.Application) *AdminApplication {
	return &AdminApplication{
		ID:             app.ID,
		Name:           app.Name,
		Description:    app.Description,
		Key:            app.Key,
		Enabled:        app.Enabled,
		MaxConnections: app.MaxConnections,
		CreatedAt:      app.CreatedAt,
		UpdatedAt:      app.UpdatedAt,
	}
}

// AdminUser is a user with the application they own, if any.
type AdminUser struct {
	models.User
	Application *AdminApplication `json:"application"`
}

type UserFilter struct {
	Search string
	Status string
}

type AuditFilter struct {
	Action     string
	EntityType string
	UserID     uint
	From       *time.Time
	To         *time.Time
}

// AdminService backs the platform operator endpoints.
type AdminService struct {
	db   *gorm.DB
	apps *ApplicationService
	now  func() time.Time
}

func NewAdminService(db *gorm.DB, apps *ApplicationService) *AdminService {
	return &AdminService{db: db, apps: apps, now: time.Now}
}

func (s *AdminService) Stats(ctx context.Context) (*PlatformStats, error) {
	db := s.db.WithContext(ctx)
	stats := &PlatformStats{Subscriptions: map[string]int64{}}

	counts := []struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&stats.Users, &models.User{}, "", nil},
		{&stats.Admins, &models.User{}, "is_admin = ?", []interface{}{true}},
		{&stats.ActiveUsers24h, &models.User{}, "last_active_at >= ?", []interface{}{s.now().Add(-24 * time.Hour)}},
		{&stats.Applications, &models.Application{}, "", nil},
		{&stats.EnabledApplications, &models.Application{}, "enabled = ?", []interface{}{true}},
		{&stats.ContactMessages, &models.ContactMessage{}, "", nil},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}

	var byStatus []struct {
		SubscriptionStatus string
		Count              int64
	}
	err := db.Model(&models.User{}).
		Select("subscription_status, COUNT(*) AS count").
		Where("subscription_status IS NOT NULL").
		Group("subscription_status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}
	for _, row := range byStatus {
		stats.Subscriptions[row.SubscriptionStatus] = row.Count
	}

	var ids []string
	if err := db.Model(&models.Application{}).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list application ids: %w", err)
	}
	latest, err := s.apps.LatestMetrics(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range latest {
		stats.Connections += m.Connected
	}

	return stats, nil
}

// ListUsers returns users newest first. Status filters by subscription status;
// "none" selects users without a subscription.
func (s *AdminService) ListUsers(ctx context.Context, f UserFilter, p Page) ([]models.User, Meta, error) {
	p = p.normalize()
	query := s.db.WithContext(ctx).Model(&models.User{})

	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		query = query.Where("LOWER(email) LIKE ?", "%"+search+"%")
	}
	switch f.Status {
	case "":
	case "none":
		query = query.Where("subscription_status IS NULL")
	default:
		query = query.Where("subscription_status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Meta{}, fmt.Errorf("count users: %w", err)
	}

	users := []models.User{}
	if err := query.Order("created_at DESC").Offset(p.offset()).Limit(p.Limit).Find(&users).Error; err != nil {
		return nil, Meta{}, fmt.Errorf("list users: %w", err)
	}
	return users, newMeta(p, total), nil
}

func (s *AdminService) GetUser(ctx context.Context, id uint) (*AdminUser, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	out := &AdminUser{User: user}
	var app models.Application
	err := db.Where(&models.Application{UserID: user.ID}).First(&app).Error
	switch {
	case err == nil:
		out.Application = newAdminApplication(&app)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("load application: %w", err)
	}
	return out, nil
}

func (s *AdminService) ListAuditLogs(ctx context.Context, f AuditFilter, p Page) ([]models.AuditLog, Meta, error) {
	p = p.normalize()
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}
	if f.UserID > 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Meta{}, fmt.Errorf("count audit logs: %w", err)
	}

	logs := []models.AuditLog{}
	if err := query.Order("created_at DESC, id DESC").Offset(p.offset()).Limit(p.Limit).Find(&logs).Error; err != nil {
		return nil, Meta{}, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, newMeta(p, total), nil
}

func (s *AdminService) ListContactMessages(ctx context.Context, p Page) ([]models.ContactMessage, Meta, error) {
	p = p.normalize()
	query := s.db.WithContext(ctx).Model(&models.ContactMessage{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Meta{}, fmt.Errorf("count contact messages: %w", err)
	}

	msgs := []models.ContactMessage{}
	if err := query.Order("created_at DESC, id DESC").Offset(p.offset()).Limit(p.Limit).Find(&msgs).Error; err != nil {
		return nil, Meta{}, fmt.Errorf("list contact messages: %w", err)
	}
	return msgs, newMeta(p, total), nil
}
