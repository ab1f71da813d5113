package alert_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/weather"
)

func newStoredAlert(id string, createdAt time.Time) *alert.Alert {
	return &alert.Alert{
		ID:        id,
		Name:      id,
		Emails:    []string{"ops@example.com"},
		Location:  weather.Location{Lat: 52.37, Lon: 4.89},
		Units:     weather.UnitsMetric,
		Condition: alert.Condition{Parameter: weather.ParamTemperature, Operator: alert.OpGreaterThan, Value: 30},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestInMemoryRepository_CRUD(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newStoredAlert("alt_b", base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newStoredAlert("alt_a", base)))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alt_a", all[0].ID)
	assert.Equal(t, "alt_b", all[1].ID)

	// Returned alerts are copies.
	all[0].Emails[0] = "mutated@example.com"
	got, err := repo.FindByID(ctx, "alt_a")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", got.Emails[0])

	require.NoError(t, repo.Delete(ctx, "alt_a"))
	_, err = repo.FindByID(ctx, "alt_a")
	assert.ErrorIs(t, err, alert.ErrAlertNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "alt_a"), alert.ErrAlertNotFound)
}

func TestInMemoryRepository_UpdateKeepsTriggeredFlag(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newStoredAlert("alt_a", created)))
	_, err := repo.UpdateStatus(ctx, "alt_a", true)
	require.NoError(t, err)

	edit := newStoredAlert("alt_a", time.Time{})
	edit.Name = "renamed"
	require.NoError(t, repo.Update(ctx, edit))

	got, err := repo.FindByID(ctx, "alt_a")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.True(t, got.IsTriggered)
	assert.Equal(t, created, got.CreatedAt)

	assert.ErrorIs(t, repo.Update(ctx, newStoredAlert("alt_missing", created)), alert.ErrAlertNotFound)
}

func TestInMemoryRepository_CompareAndSetTriggered(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newStoredAlert("alt_a", time.Now())))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.CompareAndSetTriggered(ctx, "alt_a", false, true)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	_, err := repo.CompareAndSetTriggered(ctx, "alt_missing", false, true)
	assert.ErrorIs(t, err, alert.ErrAlertNotFound)
}
