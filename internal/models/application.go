package models

import "time"

const (
	DefaultApplicationName = "New Application"

	// Unlimited disables a limit on the broker side.
	Unlimited = -1
)

// Application is a tenant's credential set and broker limits. The id doubles
// as the broker app id.
type Application struct {
	ID          string `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID      uint   `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Name        string `gorm:"column:name;size:100;not null" json:"name"`
	Description string `gorm:"column:description;size:500" json:"description"`

	// Credentials
	Key    string `gorm:"column:key;size:32;uniqueIndex;not null" json:"key"`
	Secret string `gorm:"column:secret;size:64;not null" json:"secret"`

	// Feature flags
	Enabled                  bool `gorm:"column:enabled;default:true" json:"enabled"`
	EnableClientMessages     bool `gorm:"column:enable_client_messages;default:false" json:"enable_client_messages"`
	EnableUserAuthentication bool `gorm:"column:enable_user_authentication;default:false" json:"enable_user_authentication"`

	// Limits (-1 = unlimited)
	MaxConnections               int `gorm:"column:max_connections;default:-1" json:"max_connections"`
	MaxBackendEventsPerSec       int `gorm:"column:max_backend_events_per_sec;default:-1" json:"max_backend_events_per_sec"`
	MaxClientEventsPerSec        int `gorm:"column:max_client_events_per_sec;default:-1" json:"max_client_events_per_sec"`
	MaxReadReqPerSec             int `gorm:"column:max_read_req_per_sec;default:-1" json:"max_read_req_per_sec"`
	MaxPresenceMembersPerChannel int `gorm:"column:max_presence_members_per_channel;default:-1" json:"max_presence_members_per_channel"`
	MaxEventPayloadInKB          int `gorm:"column:max_event_payload_in_kb;default:-1" json:"max_event_payload_in_kb"`
	MaxEventChannelsAtOnce       int `gorm:"column:max_event_channels_at_once;default:-1" json:"max_event_channels_at_once"`

	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Application) TableName() string {
	return "applications"
}

// ApplicationWithMetrics is an Application joined with its most recent
// metrics snapshot. Counters are zero when no snapshot exists.
type ApplicationWithMetrics struct {
	Application
	Metrics         MetricCounters `json:"metrics"`
	MetricsRecorded *time.Time     `json:"metrics_recorded_at"`
}
