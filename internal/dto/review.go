package dto

import "github.com/noah-isme/target-setting-api/internal/models"

// ApproveRequest approves a submission, optionally correcting months first.
type ApproveRequest struct {
	Comments    string             `json:"comments" validate:"max=1000"`
	Corrections models.Corrections `json:"corrections,omitempty" validate:"omitempty,dive"`
}

// RejectRequest returns a submission to its owner.
type RejectRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// BulkApproveRequest approves the eligible subset of ids.
type BulkApproveRequest struct {
	IDs      []int64 `json:"commitmentIds" validate:"required,min=1"`
	Comments string  `json:"comments" validate:"max=1000"`
}

// BulkRejectRequest rejects the eligible subset of ids.
type BulkRejectRequest struct {
	IDs    []int64 `json:"commitmentIds" validate:"required,min=1"`
	Reason string  `json:"reason" validate:"max=1000"`
}

// ReviewResult describes the outcome of a single review.
type ReviewResult struct {
	CommitmentID int64                     `json:"commitmentId"`
	Action       models.ApprovalActionType `json:"action"`
	Status       models.CommitmentStatus   `json:"status"`
}

// BulkApproveResult reports approved rows.
type BulkApproveResult struct {
	ApprovedCount int `json:"approvedCount"`
}

// BulkRejectResult reports rejected rows.
type BulkRejectResult struct {
	RejectedCount int `json:"rejectedCount"`
}

// SubmissionFilter narrows a reviewer's submission list.
type SubmissionFilter struct {
	Status       models.CommitmentStatus `form:"status"`
	EmployeeCode string                  `form:"employee"`
	CategoryID   string                  `form:"category"`
	FiscalYear   string                  `form:"fy"`
}

// ExportFile is a rendered submissions export.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}
