package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/heshen/BookStack-1/internal/models"
	"github.com/heshen/BookStack-1/internal/store"

	"github.com/google/uuid"
)

// AuditEntry is the caller-facing shape of one audit event.
type AuditEntry struct {
	EventType     models.EventType
	Severity      models.EventSeverity
	ActorUserID   string
	ActorUsername string
	ActorIP       string
	AuthMethod    string
	Action        string
	Success       bool
	ErrorMessage  string
}

// AuditService writes audit events asynchronously in batches so logging
// never sits on the login path's latency.
type AuditService struct {
	store      *store.Store
	enabled    bool
	bufferSize int

	logChan chan *models.AuditLog

	batchBuffer []*models.AuditLog
	batchMutex  sync.Mutex
	batchTicker *time.Ticker

	wg         sync.WaitGroup
	shutdownCh chan struct{}
}

// NewAuditService creates an audit service. When disabled, Record becomes
// a no-op.
func NewAuditService(s *store.Store, enabled bool, bufferSize int) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	service := &AuditService{
		store:       s,
		enabled:     enabled,
		bufferSize:  bufferSize,
		logChan:     make(chan *models.AuditLog, bufferSize),
		batchBuffer: make([]*models.AuditLog, 0, 100),
		batchTicker: time.NewTicker(1 * time.Second),
		shutdownCh:  make(chan struct{}),
	}

	if enabled {
		service.wg.Add(1)
		go service.worker()
		log.Printf("[Audit] service started with buffer size %d", bufferSize)
	} else {
		log.Println("[Audit] service is disabled")
	}

	return service
}

// Record queues an audit entry. Drops the entry (with a log line) rather
// than blocking when the buffer is full.
func (s *AuditService) Record(entry AuditEntry) {
	if !s.enabled {
		return
	}

	auditLog := &models.AuditLog{
		ID:            uuid.New().String(),
		EventType:     entry.EventType,
		Severity:      entry.Severity,
		ActorUserID:   entry.ActorUserID,
		ActorUsername: entry.ActorUsername,
		ActorIP:       entry.ActorIP,
		AuthMethod:    entry.AuthMethod,
		Action:        entry.Action,
		Success:       entry.Success,
		ErrorMessage:  entry.ErrorMessage,
		CreatedAt:     time.Now(),
	}

	select {
	case s.logChan <- auditLog:
	default:
		log.Printf("[Audit] buffer full, dropping event %s", entry.EventType)
	}
}

// worker is the background goroutine that batches and flushes audit logs.
func (s *AuditService) worker() {
	defer s.wg.Done()

	for {
		select {
		case entry := <-s.logChan:
			s.addToBatch(entry)
		case <-s.batchTicker.C:
			s.flushBatch()
		case <-s.shutdownCh:
			// Drain whatever is queued, then flush once.
			for {
				select {
				case entry := <-s.logChan:
					s.addToBatch(entry)
				default:
					s.flushBatch()
					return
				}
			}
		}
	}
}

func (s *AuditService) addToBatch(entry *models.AuditLog) {
	s.batchMutex.Lock()
	s.batchBuffer = append(s.batchBuffer, entry)
	full := len(s.batchBuffer) >= 100
	s.batchMutex.Unlock()

	if full {
		s.flushBatch()
	}
}

func (s *AuditService) flushBatch() {
	s.batchMutex.Lock()
	if len(s.batchBuffer) == 0 {
		s.batchMutex.Unlock()
		return
	}
	batch := s.batchBuffer
	s.batchBuffer = make([]*models.AuditLog, 0, 100)
	s.batchMutex.Unlock()

	if err := s.store.CreateAuditLogs(context.Background(), batch); err != nil {
		log.Printf("[Audit] failed to write %d events: %v", len(batch), err)
	}
}

// GetAuditLogs reads back persisted audit entries for the admin view.
// Entries still sitting in the write batch are not included until the
// next flush.
func (s *AuditService) GetAuditLogs(
	ctx context.Context,
	q store.AuditLogQuery,
) ([]*models.AuditLog, int64, error) {
	return s.store.ListAuditLogs(ctx, q)
}

// Shutdown stops the worker after flushing pending events.
func (s *AuditService) Shutdown() {
	if !s.enabled {
		return
	}
	close(s.shutdownCh)
	s.wg.Wait()
	s.batchTicker.Stop()
}
