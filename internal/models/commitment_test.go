package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitmentTransitions(t *testing.T) {
	cases := []struct {
		from       CommitmentStatus
		transition CommitmentTransition
		to         CommitmentStatus
		ok         bool
	}{
		{CommitmentNotStarted, TransitionSave, CommitmentDraft, true},
		{CommitmentDraft, TransitionSave, CommitmentDraft, true},
		{CommitmentSubmitted, TransitionSave, "", false},
		{CommitmentApproved, TransitionSave, "", false},
		{CommitmentNotStarted, TransitionSubmit, "", false},
		{CommitmentDraft, TransitionSubmit, CommitmentSubmitted, true},
		{CommitmentSubmitted, TransitionApprove, CommitmentApproved, true},
		{CommitmentApproved, TransitionApprove, "", false},
		{CommitmentSubmitted, TransitionReject, CommitmentDraft, true},
		{CommitmentDraft, TransitionReject, "", false},
		{CommitmentDraft, CommitmentTransition("archive"), "", false},
	}
	for _, tc := range cases {
		next, ok := tc.from.Next(tc.transition)
		assert.Equal(t, tc.ok, ok, "%s via %s", tc.from, tc.transition)
		assert.Equal(t, tc.to, next, "%s via %s", tc.from, tc.transition)
	}
	assert.NotEqual(t, CommitmentNotStarted, TransitionReject.Target())
}

func TestSourceStatusesIsACopy(t *testing.T) {
	statuses := TransitionSave.SourceStatuses()
	statuses[0] = CommitmentApproved
	assert.Equal(t, []CommitmentStatus{CommitmentNotStarted, CommitmentDraft}, TransitionSave.SourceStatuses())
}

func TestMonthlyTargetsScanValue(t *testing.T) {
	targets := MonthlyTargets{"apr": {LastYearQty: 10, ThisYearQty: 12}}
	raw, err := targets.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"apr":{"lyQty":10,"cyQty":12,"lyRev":0,"cyRev":0}}`, string(raw.([]byte)))

	var scanned MonthlyTargets
	require.NoError(t, scanned.Scan(raw))
	assert.Equal(t, targets, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.NotNil(t, scanned)
	assert.Equal(t, MonthValues{}, scanned.Month("may"))

	assert.Error(t, scanned.Scan(42))
}

func TestMonthSnapshotStoresNullWhenEmpty(t *testing.T) {
	raw, err := MonthSnapshot(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, raw)

	var snap MonthSnapshot
	require.NoError(t, snap.Scan(`{"apr":{"cyQty":40}}`))
	assert.Equal(t, 40.0, snap["apr"].ThisYearQty)
}

func TestMonthPatchApply(t *testing.T) {
	fifty := 50.0
	patch := MonthPatch{ThisYearQty: &fifty}
	assert.False(t, patch.Empty())
	assert.True(t, MonthPatch{}.Empty())
	assert.Equal(t, MonthValues{LastYearQty: 1, ThisYearQty: 50}, patch.Apply(MonthValues{LastYearQty: 1, ThisYearQty: 40}))
}

func TestUnknownMonths(t *testing.T) {
	assert.Empty(t, MonthlyTargets{"apr": {}, "mar": {}}.UnknownMonths())
	assert.Equal(t, []string{"April"}, MonthlyTargets{"April": {}}.UnknownMonths())
	assert.Equal(t, []string{"q1"}, Corrections{"q1": {}}.UnknownMonths())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleSalesRep.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleEqManagerSurgical.Valid())
	assert.False(t, Role("janitor").Valid())
}
