package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrialStatus_String(t *testing.T) {
	assert.Equal(t, "killed", Killed.String())
	assert.Equal(t, "survived", Survived.String())
	assert.Equal(t, "timed_out", TimedOut.String())
	assert.Equal(t, "build_failed", BuildFailed.String())
	assert.Equal(t, "internal_error", InternalError.String())
	assert.Equal(t, "unknown", TrialStatus(42).String())
}

func TestTrialStatus_Reportable(t *testing.T) {
	assert.False(t, Killed.Reportable())
	assert.True(t, Survived.Reportable())
	assert.True(t, TimedOut.Reportable())
	assert.True(t, BuildFailed.Reportable())
	assert.True(t, InternalError.Reportable())
}

func TestTrialStatus_Undetected(t *testing.T) {
	assert.True(t, Survived.Undetected())
	assert.True(t, TimedOut.Undetected())

	assert.False(t, Killed.Undetected())
	assert.False(t, BuildFailed.Undetected())
	assert.False(t, InternalError.Undetected())
}

func TestParseTrialStatus_RoundTrip(t *testing.T) {
	for _, status := range []TrialStatus{Killed, Survived, TimedOut, BuildFailed, InternalError} {
		parsed, ok := ParseTrialStatus(status.String())
		require.True(t, ok, status.String())
		assert.Equal(t, status, parsed)
	}

	_, ok := ParseTrialStatus("bogus")
	assert.False(t, ok)
}
