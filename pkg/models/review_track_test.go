package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackStatus(t *testing.T) {
	tests := []struct {
		status TrackStatus
		valid  bool
		name   string
	}{
		{StatusPending, true, "pending"},
		{StatusMastered, true, "mastered"},
		{TrackStatus(2), false, "TrackStatus(2)"},
		{TrackStatus(-1), false, "TrackStatus(-1)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.status.Valid(), tt.name)
		assert.Equal(t, tt.name, tt.status.String())
	}
}
