package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/jetsocket/backend/internal/logger"
	"github.com/jetsocket/backend/internal/models"
	"gorm.io/gorm"
)

var retentionLog = logger.Get("retention")

const retentionBatchSize = 1000

// ArchiveUploader stores an archive file somewhere outside the database.
type ArchiveUploader interface {
	Upload(ctx context.Context, name string, r io.Reader) error
}

type RetentionResult struct {
	Archived int64
	Deleted  int64
	Files    int
}

// MetricsRetentionService prunes metric snapshots older than the retention
// window. The latest snapshot of every application is always kept. With an
// uploader, rows are archived as CSV before they are deleted.
type MetricsRetentionService struct {
	db            *gorm.DB
	uploader      ArchiveUploader
	retention     time.Duration
	checkInterval time.Duration
	now           func() time.Time
	stopChan      chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	isRunning     bool
}

// NewMetricsRetentionService creates the worker. uploader may be nil.
func NewMetricsRetentionService(db *gorm.DB, uploader ArchiveUploader, retentionDays int, interval time.Duration) *MetricsRetentionService {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &MetricsRetentionService{
		db:            db,
		uploader:      uploader,
		retention:     time.Duration(retentionDays) * 24 * time.Hour,
		checkInterval: interval,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the retention loop
func (s *MetricsRetentionService) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()

	retentionLog.Info("metrics retention started", "retention", s.retention, "interval", s.checkInterval, "archive", s.uploader != nil)
}

// Stop stops the loop and waits for a running pass to finish
func (s *MetricsRetentionService) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	retentionLog.Info("metrics retention stopped")
}

func (s *MetricsRetentionService) run() {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.stopChan
		cancel()
	}()

	// First pass after a short delay (let system stabilize)
	select {
	case <-time.After(time.Minute):
		s.runLogged(ctx)
	case <-s.stopChan:
		return
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *MetricsRetentionService) runLogged(ctx context.Context) {
	res, err := s.RunOnce(ctx)
	if err != nil {
		retentionLog.Error("metrics retention pass failed", err)
		return
	}
	if res.Deleted > 0 {
		retentionLog.Info("metrics retention pass", "archived", res.Archived, "deleted", res.Deleted, "files", res.Files)
	}
}

// RunOnce performs a single retention pass.
func (s *MetricsRetentionService) RunOnce(ctx context.Context) (RetentionResult, error) {
	var res RetentionResult
	db := s.db.WithContext(ctx)
	cutoff := s.now().Add(-s.retention)

	var afterID uint
	for {
		var rows []models.AppMetrics
		err := db.Where("created_at < ? AND id > ?", cutoff, afterID).
			Where(supersededSnapshot).
			Order("id").Limit(retentionBatchSize).Find(&rows).Error
		if err != nil {
			return res, fmt.Errorf("load expired metrics: %w", err)
		}
		if len(rows) == 0 {
			return res, nil
		}
		afterID = rows[len(rows)-1].ID

		if s.uploader != nil {
			name := fmt.Sprintf("app_metrics-%s-%d.csv", s.now().UTC().Format("20060102T150405Z"), res.Files+1)
			if err := s.upload(ctx, name, rows); err != nil {
				return res, err
			}
			res.Archived += int64(len(rows))
			res.Files++
		}

		ids := make([]uint, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}
		del := db.Where("id IN ?", ids).Delete(&models.AppMetrics{})
		if del.Error != nil {
			return res, fmt.Errorf("delete expired metrics: %w", del.Error)
		}
		res.Deleted += del.RowsAffected

		if len(rows) < retentionBatchSize {
			return res, nil
		}
	}
}

func (s *MetricsRetentionService) upload(ctx context.Context, name string, rows []models.AppMetrics) error {
	var buf bytes.Buffer
	if err := writeMetricsCSV(&buf, rows); err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := s.uploader.Upload(ctx, name, &buf); err != nil {
		return fmt.Errorf("upload archive %s: %w", name, err)
	}
	return nil
}

var metricsCSVHeader = []string{
	"id", "app_id", "created_at", "connected", "new_connections_total", "new_disconnections_total",
	"socket_bytes_received_total", "socket_bytes_transmitted_total",
	"ws_messages_received_total", "ws_messages_sent_total",
}

func writeMetricsCSV(w io.Writer, rows []models.AppMetrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(metricsCSVHeader); err != nil {
		return err
	}
	i64 := func(v int64) string { return strconv.FormatInt(v, 10) }
	for _, r := range rows {
		rec := []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.AppID,
			r.CreatedAt.UTC().Format(time.RFC3339),
			i64(r.Connected),
			i64(r.NewConnectionsTotal),
			i64(r.NewDisconnectionsTotal),
			i64(r.SocketBytesReceivedTotal),
			i64(r.SocketBytesTransmittedTotal),
			i64(r.WSMessagesReceivedTotal),
			i64(r.WSMessagesSentTotal),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// supersededSnapshot matches snapshots that have a newer row for the same
// app. The newest snapshot of every app never matches; on a timestamp tie the
// higher id is the newer one.
const supersededSnapshot = `EXISTS (SELECT 1 FROM app_metrics AS newer
	WHERE newer.app_id = app_metrics.app_id
	AND (newer.created_at > app_metrics.created_at
		OR (newer.created_at = app_metrics.created_at AND newer.id > app_metrics.id)))`
