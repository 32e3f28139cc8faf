package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusSticky(t *testing.T) {
	tests := []struct {
		status Status
		sticky bool
	}{
		{StatusNew, false},
		{StatusScored, true},
		{StatusSelected, true},
		{StatusRejected, false},
		{StatusLaunched, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.sticky, tt.status.Sticky())
		})
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusNew.Valid())
	assert.True(t, StatusLaunched.Valid())
	assert.False(t, Status("archived").Valid())
	assert.False(t, Status("").Valid())
}

func TestDecisionValid(t *testing.T) {
	assert.True(t, DecisionLaunch.Valid())
	assert.True(t, DecisionReview.Valid())
	assert.True(t, DecisionDrop.Valid())
	assert.False(t, Decision("D_defer").Valid())
}
