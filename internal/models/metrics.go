package models

import "time"

// MetricCounters are the counters reported by the broker's metrics pipeline.
type MetricCounters struct {
	Connected                   int64 `gorm:"column:connected;default:0" json:"connected"`
	NewConnectionsTotal         int64 `gorm:"column:new_connections_total;default:0" json:"new_connections_total"`
	NewDisconnectionsTotal      int64 `gorm:"column:new_disconnections_total;default:0" json:"new_disconnections_total"`
	SocketBytesReceivedTotal    int64 `gorm:"column:socket_bytes_received_total;default:0" json:"socket_bytes_received_total"`
	SocketBytesTransmittedTotal int64 `gorm:"column:socket_bytes_transmitted_total;default:0" json:"socket_bytes_transmitted_total"`
	WSMessagesReceivedTotal     int64 `gorm:"column:ws_messages_received_total;default:0" json:"ws_messages_received_total"`
	WSMessagesSentTotal         int64 `gorm:"column:ws_messages_sent_total;default:0" json:"ws_messages_sent_total"`
}

// AppMetrics is one snapshot row. Rows are written by the external
// collector; this service only reads and prunes them.
type AppMetrics struct {
	ID    uint   `gorm:"column:id;primaryKey" json:"id"`
	AppID string `gorm:"column:app_id;size:36;not null;index" json:"app_id"`

	MetricCounters `gorm:"embedded"`

	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (AppMetrics) TableName() string {
	return "app_metrics"
}
