package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/target-setting-api/internal/models"
)

type dashboardInvalidator interface {
	InvalidateEmployees(ctx context.Context, employeeCodes []string)
}

// transitionEffects runs the best-effort work that follows a committed status change.
type transitionEffects struct {
	audit       auditSink
	invalidator dashboardInvalidator
	metrics     *MetricsService
	logger      *zap.Logger
}

type transitionRecord struct {
	tier        string
	action      models.ApprovalActionType
	auditAction string
	actor       models.Actor
	ids         []int64
	owners      []string
	detail      map[string]interface{}
}

func (e transitionEffects) after(ctx context.Context, rec transitionRecord) {
	e.metrics.RecordTransition(rec.action, rec.tier, len(rec.ids))
	if e.invalidator != nil {
		e.invalidator.InvalidateEmployees(ctx, rec.owners)
	}
	if e.audit == nil {
		return
	}

	detail := map[string]interface{}{"action": rec.action}
	if rec.tier != "" {
		detail["tier"] = rec.tier
	}
	for k, v := range rec.detail {
		detail[k] = v
	}
	entityID := ""
	if len(rec.ids) == 1 {
		entityID = strconv.FormatInt(rec.ids[0], 10)
	} else {
		detail["commitmentIds"] = rec.ids
		entityID = "batch"
	}
	e.audit.Record(ctx, AuditEntry{
		ActorCode:  rec.actor.Code,
		ActorRole:  rec.actor.Role,
		Action:     rec.auditAction,
		EntityType: models.AuditEntityCommitment,
		EntityID:   entityID,
		Detail:     detail,
		IPAddress:  rec.actor.IP,
	})
}

func (e transitionEffects) invalidateOnly(ctx context.Context, owner string) {
	if e.invalidator != nil {
		e.invalidator.InvalidateEmployees(ctx, []string{owner})
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id <= 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
