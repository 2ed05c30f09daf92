package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jetsocket/backend/internal/database"
	"github.com/jetsocket/backend/internal/logger"
	"github.com/jetsocket/backend/internal/models"
	"github.com/jetsocket/backend/internal/payments"
	"github.com/jetsocket/backend/internal/security"
	"gorm.io/gorm"
)

var appLog = logger.Get("applications")

// ApplicationService owns the application CRUD rules. Every method is
// scoped to the calling user; applications of other users behave as if
// they did not exist.
type ApplicationService struct {
	db    *gorm.DB
	cache *database.Cache
}

func NewApplicationService(db *gorm.DB, cache *database.Cache) *ApplicationService {
	return &ApplicationService{db: db, cache: cache}
}

type CreateApplicationInput struct {
	Name        string
	Description string
	Plan        string
}

// UpdateApplicationInput lists every mutable field. Nil fields are left
// unchanged.
type UpdateApplicationInput struct {
	Enabled                  *bool   `json:"enabled"`
	EnableUserAuthentication *bool   `json:"enable_user_authentication"`
	EnableClientMessages     *bool   `json:"enable_client_messages"`
	Name                     *string `json:"name"`
	Description              *string `json:"description"`
}

func (in UpdateApplicationInput) IsEmpty() bool {
	return in.Enabled == nil && in.EnableUserAuthentication == nil && in.EnableClientMessages == nil &&
		in.Name == nil && in.Description == nil
}

func (in UpdateApplicationInput) changes() (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if in.Enabled != nil {
		updates["enabled"] = *in.Enabled
	}
	if in.EnableUserAuthentication != nil {
		updates["enable_user_authentication"] = *in.EnableUserAuthentication
	}
	if in.EnableClientMessages != nil {
		updates["enable_client_messages"] = *in.EnableClientMessages
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be blank", ErrInvalidInput)
		}
		if len(name) > 100 {
			return nil, fmt.Errorf("%w: name must be at most 100 characters", ErrInvalidInput)
		}
		updates["name"] = name
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if len(desc) > 500 {
			return nil, fmt.Errorf("%w: description must be at most 500 characters", ErrInvalidInput)
		}
		updates["description"] = desc
	}
	return updates, nil
}

// Status filters for List.
const (
	StatusAll      = "all"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type ListFilter struct {
	Status string
	Search string
}

type ApplicationCounts struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

type ApplicationList struct {
	Applications []models.ApplicationWithMetrics `json:"applications"`
	Counts       ApplicationCounts               `json:"counts"`
}

// List returns the caller's applications newest first, each joined with its
// latest metrics snapshot.
func (s *ApplicationService) List(ctx context.Context, userID uint, f ListFilter) (*ApplicationList, error) {
	db := s.db.WithContext(ctx)

	query := db.Where("user_id = ?", userID)
	switch strings.ToLower(f.Status) {
	case "", StatusAll:
	case StatusActive:
		query = query.Where("enabled = ?", true)
	case StatusInactive:
		query = query.Where("enabled = ?", false)
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}

	var apps []models.Application
	if err := query.Order("created_at DESC").Order("id").Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	counts, err := s.counts(ctx, userID)
	if err != nil {
		return nil, err
	}

	withMetrics, err := s.attachMetrics(ctx, apps)
	if err != nil {
		return nil, err
	}
	return &ApplicationList{Applications: withMetrics, Counts: counts}, nil
}

func (s *ApplicationService) counts(ctx context.Context, userID uint) (ApplicationCounts, error) {
	var c ApplicationCounts
	owned := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Application{}).Where("user_id = ?", userID)
	}
	if err := owned().Count(&c.Total).Error; err != nil {
		return c, fmt.Errorf("count applications: %w", err)
	}
	if err := owned().Where("enabled = ?", true).Count(&c.Active).Error; err != nil {
		return c, fmt.Errorf("count applications: %w", err)
	}
	c.Inactive = c.Total - c.Active
	return c, nil
}

// find loads an application owned by userID.
func (s *ApplicationService) find(ctx context.Context, db *gorm.DB, userID uint, id string) (*models.Application, error) {
	var app models.Application
	err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load application: %w", err)
	}
	return &app, nil
}

// Get returns one application with its latest metrics.
func (s *ApplicationService) Get(ctx context.Context, userID uint, id string) (*models.ApplicationWithMetrics, error) {
	app, err := s.find(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	out, err := s.attachMetrics(ctx, []models.Application{*app})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Find returns the application without metrics.
func (s *ApplicationService) Find(ctx context.Context, userID uint, id string) (*models.Application, error) {
	return s.find(ctx, s.db, userID, id)
}

// Create registers the caller's application. A user may own at most one,
// checked inside the transaction and backed by the unique index on user_id.
func (s *ApplicationService) Create(ctx context.Context, user *models.User, in CreateApplicationInput) (*models.Application, error) {
	var plan payments.PlanID
	if in.Plan != "" {
		p, err := payments.ParsePlanID(in.Plan)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		plan = p
	} else if user.SubscriptionPlan != nil {
		plan = payments.PlanID(*user.SubscriptionPlan)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = models.DefaultApplicationName
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("%w: name must be at most 100 characters", ErrInvalidInput)
	}
	desc := strings.TrimSpace(in.Description)
	if len(desc) > 500 {
		return nil, fmt.Errorf("%w: description must be at most 500 characters", ErrInvalidInput)
	}

	key, secret, err := security.GenerateAppCredentials()
	if err != nil {
		return nil, err
	}

	app := &models.Application{
		ID:                           uuid.NewString(),
		UserID:                       user.ID,
		Name:                         name,
		Description:                  desc,
		Key:                          key,
		Secret:                       secret,
		Enabled:                      true,
		MaxConnections:               payments.ConnectionLimit(plan),
		MaxBackendEventsPerSec:       models.Unlimited,
		MaxClientEventsPerSec:        models.Unlimited,
		MaxReadReqPerSec:             models.Unlimited,
		MaxPresenceMembersPerChannel: models.Unlimited,
		MaxEventPayloadInKB:          models.Unlimited,
		MaxEventChannelsAtOnce:       models.Unlimited,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Application{}).Where("user_id = ?", user.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrApplicationLimitReached
		}
		if err := tx.Create(app).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrApplicationLimitReached
			}
			return err
		}
		if in.Plan != "" {
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
				Update("subscription_plan", string(plan)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrApplicationLimitReached) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	if in.Plan != "" {
		p := string(plan)
		user.SubscriptionPlan = &p
	}
	appLog.Info("application created", "app_id", app.ID, "user_id", user.ID)
	return app, nil
}

// Update applies the present fields of in. An empty update returns the
// stored application unchanged.
func (s *ApplicationService) Update(ctx context.Context, userID uint, id string, in UpdateApplicationInput) (*models.Application, error) {
	updates, err := in.changes()
	if err != nil {
		return nil, err
	}

	var app *models.Application
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.find(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		app = found
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(app).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(app).Error
	})
	if errors.Is(err, ErrApplicationNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	return app, nil
}

// Delete removes the application and its metrics in one transaction.
func (s *ApplicationService) Delete(ctx context.Context, userID uint, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.find(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.Where("app_id = ?", app.ID).Delete(&models.AppMetrics{}).Error; err != nil {
			return err
		}
		return tx.Delete(app).Error
	})
	if errors.Is(err, ErrApplicationNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}

	s.cache.InvalidateAppMetrics(ctx, id)
	appLog.Info("application deleted", "app_id", id, "user_id", userID)
	return nil
}

func (s *ApplicationService) attachMetrics(ctx context.Context, apps []models.Application) ([]models.ApplicationWithMetrics, error) {
	ids := make([]string, len(apps))
	for i, a := range apps {
		ids[i] = a.ID
	}
	latest, err := s.LatestMetrics(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.ApplicationWithMetrics, len(apps))
	for i, a := range apps {
		out[i].Application = a
		if m, ok := latest[a.ID]; ok {
			out[i].Metrics = m.MetricCounters
			recorded := m.CreatedAt
			out[i].MetricsRecorded = &recorded
		}
	}
	return out, nil
}

// LatestMetrics returns the most recent snapshot per application id. Apps
// without a snapshot are absent from the map.
func (s *ApplicationService) LatestMetrics(ctx context.Context, appIDs []string) (map[string]models.AppMetrics, error) {
	out := make(map[string]models.AppMetrics, len(appIDs))
	if len(appIDs) == 0 {
		return out, nil
	}

	var missing []string
	for _, id := range appIDs {
		var m models.AppMetrics
		if err := s.cache.Get(ctx, database.CacheKeyAppMetrics+id, &m); err == nil {
			out[id] = m
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	db := s.db.WithContext(ctx)
	latest := db.Model(&models.AppMetrics{}).
		Select("app_id, MAX(created_at) AS created_at").
		Where("app_id IN ?", missing).
		Group("app_id")

	var rows []models.AppMetrics
	err := db.Table("app_metrics AS m").
		Select("m.*").
		Joins("JOIN (?) AS latest ON latest.app_id = m.app_id AND latest.created_at = m.created_at", latest).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load latest metrics: %w", err)
	}

	// Two snapshots can share a timestamp; the higher id wins.
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	for _, r := range rows {
		out[r.AppID] = r
	}
	for _, id := range missing {
		if m, ok := out[id]; ok {
			if err := s.cache.Set(ctx, database.CacheKeyAppMetrics+id, m, database.CacheTTLAppMetrics); err != nil {
				appLog.Warn("failed to cache metrics", "app_id", id, err)
			}
		}
	}
	return out, nil
}
