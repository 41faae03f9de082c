package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQualityTrace_ExpiryWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	trace := QualityTrace{
		LotNumber:  "LOT-2025-0001",
		ExpiryDate: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	}

	assert.False(t, trace.IsExpired(now))
	assert.True(t, trace.IsExpiringSoon(now), "срок внутри недельного окна")

	trace.ExpiryDate = time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC)
	assert.False(t, trace.IsExpiringSoon(now), "далёкий срок не тревожит")

	trace.ExpiryDate = time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.True(t, trace.IsExpired(now))
	assert.False(t, trace.IsExpiringSoon(now), "истёкший срок не считается подходящим")
}

func TestTraceStatus_Valid(t *testing.T) {
	assert.True(t, TraceStatusPending.Valid())
	assert.True(t, TraceStatusQuarantined.Valid())
	assert.False(t, TraceStatus("MISSING").Valid())
}
