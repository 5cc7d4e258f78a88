package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusCreated, StatusPaid, true},
		{StatusCreated, StatusFailed, true},
		{StatusPaid, StatusFailed, false},
		{StatusPaid, StatusCreated, false},
		{StatusFailed, StatusPaid, false},
		{StatusFailed, StatusCreated, false},
		{StatusCreated, StatusCreated, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusCreated.Terminal())
	assert.True(t, StatusPaid.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
