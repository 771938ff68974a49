package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ApprovalActionType tags an entry of the approval trail.
type ApprovalActionType string

const (
	ActionSubmitted            ApprovalActionType = "submitted"
	ActionApproved             ApprovalActionType = "approved"
	ActionCorrectedAndApproved ApprovalActionType = "corrected_and_approved"
	ActionRejected             ApprovalActionType = "rejected"
	ActionBulkApproved         ApprovalActionType = "bulk_approved"
	ActionBulkRejected         ApprovalActionType = "bulk_rejected"
)

// MonthSnapshot is a JSONB column holding per-month figures, nil when absent.
type MonthSnapshot map[string]MonthValues

// Value marshals the snapshot, storing NULL when empty.
func (s MonthSnapshot) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(map[string]MonthValues(s))
	if err != nil {
		return nil, fmt.Errorf("marshal month snapshot: %w", err)
	}
	return data, nil
}

// Scan unmarshals a nullable JSONB column.
func (s *MonthSnapshot) Scan(value interface{}) error {
	data, err := jsonBytes(value, "MonthSnapshot")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*s = nil
		return nil
	}
	out := MonthSnapshot{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal month snapshot: %w", err)
	}
	*s = out
	return nil
}

// ApprovalAction is an immutable row of a commitment's approval trail.
type ApprovalAction struct {
	ID             int64              `db:"id" json:"id"`
	CommitmentID   int64              `db:"commitment_id" json:"commitmentId"`
	Action         ApprovalActionType `db:"action" json:"action"`
	ActorCode      string             `db:"actor_code" json:"actorCode"`
	ActorRole      Role               `db:"actor_role" json:"actorRole"`
	Corrections    MonthSnapshot      `db:"corrections" json:"corrections,omitempty"`
	OriginalValues MonthSnapshot      `db:"original_values" json:"originalValues,omitempty"`
	Comments       *string            `db:"comments" json:"comments,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"createdAt"`
}
