package dto

import "github.com/noah-isme/target-setting-api/internal/models"

// SaveCommitmentRequest replaces a commitment's monthly targets wholesale.
type SaveCommitmentRequest struct {
	MonthlyTargets models.MonthlyTargets `json:"monthlyTargets" validate:"required"`
}

// SubmitCommitmentRequest carries an optional submission note.
type SubmitCommitmentRequest struct {
	Comment string `json:"comment" validate:"max=1000"`
}

// SubmitManyRequest lists commitments to submit together.
type SubmitManyRequest struct {
	IDs []int64 `json:"commitmentIds" validate:"required,min=1"`
}

// SubmitManyResult reports how many commitments moved to submitted.
type SubmitManyResult struct {
	SubmittedCount int `json:"submittedCount"`
}

// SaveAllItem is one entry of a save-all batch.
type SaveAllItem struct {
	ID             int64                 `json:"id" validate:"required"`
	MonthlyTargets models.MonthlyTargets `json:"monthlyTargets" validate:"required"`
}

// SaveAllRequest saves many drafts best-effort.
type SaveAllRequest struct {
	Items []SaveAllItem `json:"commitments" validate:"required,min=1,dive"`
}

// SaveAllResult reports how many drafts were saved.
type SaveAllResult struct {
	SavedCount int `json:"savedCount"`
}

// CommitmentHistory is the approval trail of one commitment.
type CommitmentHistory struct {
	Commitment models.Commitment       `json:"commitment"`
	Actions    []models.ApprovalAction `json:"actions"`
}
