package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/target-setting-api/internal/models"
	"github.com/noah-isme/target-setting-api/pkg/jobs"
)

// AuditEntry is one fire-and-forget audit record.
type AuditEntry struct {
	ActorCode  string
	ActorRole  models.Role
	Action     string
	EntityType string
	EntityID   string
	Detail     interface{}
	IPAddress  string
}

type auditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

type auditSink interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditService writes audit records through a background queue. Failures are logged, never returned.
type AuditService struct {
	writer auditWriter
	queue  *jobs.Queue[models.AuditLog]
	logger *zap.Logger
}

// NewAuditService constructs the sink. Call Start to enable asynchronous writes.
func NewAuditService(writer auditWriter, cfg jobs.QueueConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger
	svc := &AuditService{writer: writer, logger: logger}
	svc.queue = jobs.NewQueue[models.AuditLog]("audit", func(ctx context.Context, job jobs.Job[models.AuditLog]) error {
		entry := job.Payload
		return svc.writer.Create(ctx, &entry)
	}, cfg)
	return svc
}

// Start launches the audit workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains pending records and stops the workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record queues an audit entry, writing inline when the queue cannot take it.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil || s.writer == nil {
		return
	}
	log := models.AuditLog{
		ID:         uuid.NewString(),
		ActorCode:  entry.ActorCode,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
	}
	if entry.IPAddress != "" {
		ip := entry.IPAddress
		log.IPAddress = &ip
	}
	if entry.Detail != nil {
		detail, err := json.Marshal(entry.Detail)
		if err != nil {
			s.logger.Warn("audit detail not serialisable", zap.String("action", entry.Action), zap.Error(err))
		} else {
			log.Detail = detail
		}
	}

	if s.queue.Running() {
		err := s.queue.Enqueue(jobs.Job[models.AuditLog]{ID: log.ID, Type: log.Action, Payload: log})
		if err == nil {
			return
		}
		s.logger.Warn("audit queue rejected entry, writing inline", zap.String("action", log.Action), zap.Error(err))
	}
	if err := s.writer.Create(context.WithoutCancel(ctx), &log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", log.Action), zap.String("entity_id", log.EntityID), zap.Error(err))
	}
}
