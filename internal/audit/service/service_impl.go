package service

import (
	"context"
	"strings"
	"time"

	auditdomain "github.com/DeveloperTWH/crownstandard-backend/internal/audit/domain"
	"github.com/DeveloperTWH/crownstandard-backend/internal/auditcontext"
	"github.com/DeveloperTWH/crownstandard-backend/internal/clock"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

const auditSavepoint = "audit_entry"

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) {
	row, ok := s.buildRow(ctx, entry)
	if !ok {
		return
	}
	if err := s.repo.Insert(ctx, s.db, row); err != nil {
		s.logFailure(row, err)
	}
}

// RecordTx writes the entry inside the caller's transaction, behind a
// savepoint: a failed audit INSERT would otherwise abort the whole
// transaction and take the payout transition down with it.
func (s *Service) RecordTx(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) {
	if tx == nil {
		s.Record(ctx, entry)
		return
	}
	row, ok := s.buildRow(ctx, entry)
	if !ok {
		return
	}
	if err := tx.SavePoint(auditSavepoint).Error; err != nil {
		// No savepoint support on this connection; insert plainly.
		if err := s.repo.Insert(ctx, tx, row); err != nil {
			s.logFailure(row, err)
		}
		return
	}
	if err := s.repo.Insert(ctx, tx, row); err != nil {
		if rbErr := tx.RollbackTo(auditSavepoint).Error; rbErr != nil {
			s.log.Error("audit savepoint rollback failed", zap.Error(rbErr))
		}
		s.logFailure(row, err)
	}
}

func (s *Service) logFailure(row *auditdomain.AuditLog, err error) {
	s.log.Error("audit write failed",
		zap.String("action", row.Action),
		zap.String("target_type", row.TargetType),
		zap.Error(err),
	)
}

func (s *Service) buildRow(ctx context.Context, entry auditdomain.Entry) (*auditdomain.AuditLog, bool) {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		s.log.Warn("audit entry dropped: missing action")
		return nil, false
	}

	actorType, actorID := auditcontext.ActorFromContext(ctx)
	if actorType == "" {
		actorType = string(auditdomain.ActorTypeSystem)
	}

	row := auditdomain.AuditLog{
		ID:          s.genID.Generate(),
		ActorType:   actorType,
		Action:      action,
		TargetType:  strings.TrimSpace(entry.TargetType),
		Description: strings.TrimSpace(entry.Description),
		Metadata:    toJSONMap(entry.Metadata),
		CreatedAt:   s.clock.Now(),
	}
	if actorID != "" {
		row.ActorID = &actorID
	}
	if targetID := strings.TrimSpace(entry.TargetID); targetID != "" {
		row.TargetID = &targetID
	}
	if len(entry.Before) > 0 {
		row.BeforeState = toJSONMap(entry.Before)
	}
	if len(entry.After) > 0 {
		row.AfterState = toJSONMap(entry.After)
	}
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		row.Metadata["request_id"] = requestID
	}
	return &row, true
}

func (s *Service) List(ctx context.Context, filter auditdomain.ListFilter) ([]*auditdomain.AuditLog, error) {
	return s.repo.List(ctx, s.db, filter)
}

func toJSONMap(values map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for key, value := range values {
		if strings.TrimSpace(key) == "" {
			continue
		}
		switch typed := value.(type) {
		case time.Time:
			out[key] = typed.UTC().Format(time.RFC3339)
		default:
			out[key] = value
		}
	}
	return out
}
