package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlertType_Valid(t *testing.T) {
	assert.True(t, AlertDailyChange.Valid())
	assert.True(t, AlertValueBelow.Valid())
	assert.True(t, AlertValueAbove.Valid())

	assert.False(t, AlertType("").Valid())
	assert.False(t, AlertType("weekly_change").Valid())
	assert.False(t, AlertType("DAILY_CHANGE").Valid())
}
