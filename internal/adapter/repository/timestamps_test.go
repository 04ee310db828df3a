package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTimestampKnownShapes(t *testing.T) {
	ref := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	got, ok := normalizeTimestamp(ref.In(time.FixedZone("UTC+7", 7*3600)))
	assert.True(t, ok)
	assert.Equal(t, ref, got)

	ptr := ref
	got, ok = normalizeTimestamp(&ptr)
	assert.True(t, ok)
	assert.Equal(t, ref, got)

	got, ok = normalizeTimestamp("2024-03-01T12:30:00Z")
	assert.True(t, ok)
	assert.Equal(t, ref, got)

	got, ok = normalizeTimestamp(ref.UnixMilli())
	assert.True(t, ok)
	assert.Equal(t, ref, got)

	got, ok = normalizeTimestamp(float64(ref.UnixMilli()))
	assert.True(t, ok)
	assert.Equal(t, ref, got)
}

func TestNormalizeTimestampUnrecognizedShapes(t *testing.T) {
	for _, v := range []interface{}{nil, "not-a-time", struct{}{}, true, (*time.Time)(nil)} {
		_, ok := normalizeTimestamp(v)
		assert.False(t, ok, "%T should be unrecognized", v)
	}
}
