package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonDegraded(t *testing.T) {
	tests := []struct {
		reason Reason
		want   bool
	}{
		{ReasonSourceUnavailable, true},
		{ReasonInvalidRequest, true},
		{ReasonInsufficientClearance, false},
		{ReasonEmbargoed, false},
		{ReasonDonorRestriction, false},
		{ReasonRedactionUnavailable, false},
		{ReasonNone, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.reason.Degraded())
		})
	}
}
