package models

import (
	"encoding/json"
	"time"
)

// Audit actions recorded by the workflow.
const (
	AuditActionCommitmentSubmitted = "COMMITMENT_SUBMITTED"
	AuditActionCommitmentApproved  = "COMMITMENT_APPROVED"
	AuditActionCommitmentRejected  = "COMMITMENT_REJECTED"
	AuditActionCommitmentBulk      = "COMMITMENT_BULK_REVIEW"
	AuditActionYearlyTargetPublish = "YEARLY_TARGET_PUBLISH"
)

// Audit entity types.
const (
	AuditEntityCommitment   = "commitment"
	AuditEntityYearlyTarget = "yearly_target"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	ActorCode  string          `db:"actor_code" json:"actorCode"`
	ActorRole  Role            `db:"actor_role" json:"actorRole"`
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entityType"`
	EntityID   string          `db:"entity_id" json:"entityId"`
	Detail     json.RawMessage `db:"detail" json:"detail,omitempty"`
	IPAddress  *string         `db:"ip_address" json:"ipAddress,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}
