package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		raw     string
		want    Plan
		wantErr error
	}{
		{raw: "month", want: PlanMonth},
		{raw: " 3months ", want: Plan3Months},
		{raw: "6MONTHS", want: Plan6Months},
		{raw: "year", want: PlanYear},
		{raw: "yearly", want: PlanYear},
		{raw: "", wantErr: ErrInvalidInput},
		{raw: "weekly", wantErr: ErrUnknownPlan},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePlan(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanDays(t *testing.T) {
	assert.Equal(t, 30, PlanMonth.Days())
	assert.Equal(t, 90, Plan3Months.Days())
	assert.Equal(t, 180, Plan6Months.Days())
	assert.Equal(t, 365, PlanYear.Days())
	assert.Equal(t, 0, Plan("weekly").Days())
}

func TestErrUnknownPlan_IsInvalidInput(t *testing.T) {
	assert.True(t, errors.Is(ErrUnknownPlan, ErrInvalidInput))
	assert.True(t, errors.Is(ErrRequestNotPending, ErrInvalidInput))
}

func TestStorageError(t *testing.T) {
	cause := errors.New("connection reset")
	err := StorageError("update salon", cause)
	assert.True(t, errors.Is(err, ErrStorageFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "update salon")
	assert.Nil(t, StorageError("noop", nil))
}

func TestSubscriptionStats_Add(t *testing.T) {
	var s SubscriptionStats
	s.Add(ClassificationActive)
	s.Add(ClassificationExpired)
	s.Add(ClassificationExpired)
	s.Add(ClassificationExpiring)
	assert.Equal(t, SubscriptionStats{Active: 1, Expiring: 1, Expired: 2}, s)
}
