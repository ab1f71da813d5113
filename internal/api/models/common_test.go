package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertrix/alertrix/internal/api/models"
)

func TestTimestamp_JSON(t *testing.T) {
	amsterdam := time.FixedZone("CEST", 2*60*60)
	ts := models.Timestamp(time.Date(2026, 7, 1, 14, 30, 15, 999_000_000, amsterdam))

	out, err := json.Marshal(struct {
		At models.Timestamp `json:"at"`
	}{ts})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"2026-07-01T12:30:15Z"}`, string(out))

	var in struct {
		At  models.Timestamp  `json:"at"`
		Opt *models.Timestamp `json:"opt"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"2026-07-01T14:30:15+02:00","opt":null}`), &in))
	assert.Equal(t, time.Date(2026, 7, 1, 12, 30, 15, 0, time.UTC), in.At.Time())
	assert.Nil(t, in.Opt)

	assert.Error(t, json.Unmarshal([]byte(`{"at":"yesterday"}`), &in))
}

func TestTimestampOf(t *testing.T) {
	assert.Nil(t, models.TimestampOf(nil))
	assert.Nil(t, models.TimestampOf(&time.Time{}))

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := models.TimestampOf(&now)
	require.NotNil(t, got)
	assert.Equal(t, now, got.Time())
}
