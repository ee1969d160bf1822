package cost

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sink persists usage records. Record must never block the call path it
// instruments; implementations accept best-effort delivery.
type Sink interface {
	Record(r UsageRecord)
	Close()
}

// InitSchema runs the AutoMigrate this package needs, following
// llm/db_init.go's InitDatabase convention of migrating its own models
// independently of the caller's other schemas.
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&UsageRecord{}); err != nil {
		return fmt.Errorf("failed to auto migrate usage records: %w", err)
	}
	return nil
}

// queueDepth bounds how many pending records a GORMSink will buffer before
// Record starts dropping the newest ones rather than blocking the caller.
const queueDepth = 1024

// GORMSink writes UsageRecord rows to db from a small worker pool, fed by a
// buffered channel. Two cloud calls' records may land in any order relative
// to each other, matching the invariant that usage persistence is
// best-effort and unordered.
type GORMSink struct {
	db     *gorm.DB
	logger *zap.Logger
	queue  chan UsageRecord
	wg     sync.WaitGroup
}

// NewGORMSink starts workers workers pulling off an internal queue and
// persisting records with db. Call Close to drain and stop the workers.
func NewGORMSink(db *gorm.DB, workers int, logger *zap.Logger) *GORMSink {
	if workers <= 0 {
		workers = 1
	}
	s := &GORMSink{
		db:     db,
		logger: logger.With(zap.String("component", "cost_sink")),
		queue:  make(chan UsageRecord, queueDepth),
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

func (s *GORMSink) worker() {
	defer s.wg.Done()
	// Closing s.queue in Close still lets range drain whatever was
	// already buffered before the channel reports done.
	for rec := range s.queue {
		s.persist(rec)
	}
}

func (s *GORMSink) persist(rec UsageRecord) {
	if rec.StoredAt.IsZero() {
		rec.StoredAt = time.Now()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		s.logger.Error("failed to persist usage record",
			zap.String("request_id", rec.RequestID), zap.Error(err))
	}
}

// Record enqueues r for persistence. If the queue is full the record is
// dropped and logged rather than blocking the caller's request path.
func (s *GORMSink) Record(r UsageRecord) {
	select {
	case s.queue <- r:
	default:
		s.logger.Warn("usage record queue full, dropping record",
			zap.String("request_id", r.RequestID))
	}
}

// Close stops accepting new work, drains the queue, and waits for workers
// to finish flushing it.
func (s *GORMSink) Close() {
	close(s.queue)
	s.wg.Wait()
}

// NopSink discards every record; useful when cost accounting is disabled.
type NopSink struct{}

func (NopSink) Record(UsageRecord) {}
func (NopSink) Close()             {}
