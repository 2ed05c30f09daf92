package services

import (
	"context"
	"fmt"

	"github.com/jetsocket/backend/internal/models"
)

// ConnectedApp is one dashboard row. Connections is the latest reported
// active connection count.
type ConnectedApp struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Key         string                `json:"key"`
	Enabled     bool                  `json:"enabled"`
	Connections int64                 `json:"connections"`
	Metrics     models.MetricCounters `json:"metrics"`
}

type DashboardTotals struct {
	Applications     int   `json:"applications"`
	ActiveApps       int   `json:"active_applications"`
	Connections      int64 `json:"connections"`
	MessagesReceived int64 `json:"messages_received"`
	MessagesSent     int64 `json:"messages_sent"`
	BytesReceived    int64 `json:"bytes_received"`
	BytesTransmitted int64 `json:"bytes_transmitted"`
}

type ConnectedApps struct {
	Apps   []ConnectedApp  `json:"apps"`
	Totals DashboardTotals `json:"totals"`
}

// ConnectedApps reports store-backed counters only. A user without
// applications gets an empty list.
func (s *ApplicationService) ConnectedApps(ctx context.Context, userID uint) (*ConnectedApps, error) {
	var apps []models.Application
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	withMetrics, err := s.attachMetrics(ctx, apps)
	if err != nil {
		return nil, err
	}

	out := &ConnectedApps{Apps: make([]ConnectedApp, 0, len(withMetrics))}
	for _, a := range withMetrics {
		out.Apps = append(out.Apps, ConnectedApp{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Key:         a.Key,
			Enabled:     a.Enabled,
			Connections: a.Metrics.Connected,
			Metrics:     a.Metrics,
		})
		out.Totals.Applications++
		if a.Enabled {
			out.Totals.ActiveApps++
		}
		out.Totals.Connections += a.Metrics.Connected
		out.Totals.MessagesReceived += a.Metrics.WSMessagesReceivedTotal
		out.Totals.MessagesSent += a.Metrics.WSMessagesSentTotal
		out.Totals.BytesReceived += a.Metrics.SocketBytesReceivedTotal
		out.Totals.BytesTransmitted += a.Metrics.SocketBytesTransmittedTotal
	}
	return out, nil
}
