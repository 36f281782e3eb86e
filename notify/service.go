// Package notify delivers inbox notifications. Delivery is asynchronous
// and best-effort: callers fire events and move on; a full buffer or a
// failed write never propagates back into the operation that emitted it.
package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/whisperyapp/server/config"
	"github.com/whisperyapp/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event is one notification to be delivered to a user's inbox.
type Event struct {
	UserID  int64       // recipient
	ActorID int64       // who caused it
	Kind    string      // model.Notif* constant
	Payload interface{} // kind-specific context, stored as JSON
}

// Notifier is the capability injected into services that emit events.
type Notifier interface {
	Notify(Event)
}

// Service writes notification rows asynchronously in batches.
type Service struct {
	db            *gorm.DB
	ch            chan *model.Notification
	stopCh        chan struct{}
	wg            sync.WaitGroup
	flushInterval time.Duration
	logger        *zap.Logger
}

// New creates a notify Service and starts its background worker.
func New(db *gorm.DB, cfg config.NotifyConfig, logger *zap.Logger) *Service {
	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 1024
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = 2 * time.Second
	}
	svc := &Service{
		db:            db,
		ch:            make(chan *model.Notification, bufSize),
		stopCh:        make(chan struct{}),
		flushInterval: flush,
		logger:        logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Notify enqueues an event for async DB write. It never blocks: when the
// buffer is full the event is dropped with a warning.
func (svc *Service) Notify(ev Event) {
	payloadJSON, _ := json.Marshal(ev.Payload)
	record := &model.Notification{
		UserID:  ev.UserID,
		ActorID: ev.ActorID,
		Kind:    ev.Kind,
		Payload: datatypes.JSON(payloadJSON),
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("notify channel full, dropping event",
			zap.String("kind", ev.Kind),
			zap.Int64("user_id", ev.UserID))
	}
}

// Stop flushes remaining events and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop() {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

// CleanupRead deletes read notifications older than the retention window.
// Wired as a scheduler task.
func (svc *Service) CleanupRead(retention time.Duration) {
	cutoff := time.Now().Add(-retention)
	res := svc.db.Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&model.Notification{})
	if res.Error != nil {
		svc.logger.Error("notification cleanup failed", zap.Error(res.Error))
		return
	}
	if res.RowsAffected > 0 {
		svc.logger.Info("notification cleanup", zap.Int64("deleted", res.RowsAffected))
	}
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.flushInterval)
	defer ticker.Stop()

	batch := make([]*model.Notification, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("notification batch write failed", zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case record := <-svc.ch:
			batch = append(batch, record)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining events.
			for {
				select {
				case record := <-svc.ch:
					batch = append(batch, record)
				default:
					flush()
					return
				}
			}
		}
	}
}
