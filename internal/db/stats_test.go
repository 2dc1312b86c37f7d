package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evrokas/route-tracker/internal/directions"
)

func TestSlotStatistics(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	save := func(routeID, schedTime string, durations ...int) {
		for _, d := range durations {
			rec := sampleRecord(routeID)
			rec.ScheduledTime = schedTime
			_, _, err := database.SaveCollection(ctx, rec, []directions.Route{
				candidate("primary", d, nil),
				candidate("alt", d+999, nil),
			})
			require.NoError(t, err)
		}
	}

	save("dad_work", "08:00", 600, 620, 640, 580, 610)
	save("dad_work", "17:30", 900, 900)
	save("school_run", "08:00", 300)

	// A failed collection never contributes.
	failed := sampleRecord("dad_work")
	failed.APIStatus = "UNKNOWN_ERROR"
	_, _, err := database.SaveCollection(ctx, failed, nil)
	require.NoError(t, err)

	slots, err := database.SlotStatistics(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	morning := slots[0]
	assert.Equal(t, "dad_work", morning.RouteID)
	assert.Equal(t, "08:00", morning.ScheduledTime)
	assert.Equal(t, 5, morning.Samples)
	assert.InDelta(t, 610, morning.MeanSeconds, 1e-9)
	assert.InDelta(t, 20, morning.StdDevSeconds, 1e-9)

	evening := slots[1]
	assert.Equal(t, "17:30", evening.ScheduledTime)
	assert.Equal(t, 2, evening.Samples)
	assert.InDelta(t, 900, evening.MeanSeconds, 1e-9)
	assert.InDelta(t, 0, evening.StdDevSeconds, 1e-9)

	other := slots[2]
	assert.Equal(t, "school_run", other.RouteID)
	assert.Equal(t, 1, other.Samples)
}

func TestSlotStatisticsEmptyHistory(t *testing.T) {
	database := openTestDB(t)
	slots, err := database.SlotStatistics(context.Background())
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestPruneOlderThan(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	old := sampleRecord("dad_work")
	old.CollectedAt = time.Now().UTC().AddDate(0, 0, -60)
	_, _, err := database.SaveCollection(ctx, old, []directions.Route{candidate("A", 600, nil)})
	require.NoError(t, err)

	fresh := sampleRecord("dad_work")
	fresh.CollectedAt = time.Now().UTC()
	freshID, _, err := database.SaveCollection(ctx, fresh, []directions.Route{candidate("B", 700, nil)})
	require.NoError(t, err)

	deleted, err := database.PruneOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	n, err := database.CountRows(ctx, "collections")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Candidate rows of the pruned collection cascade away too.
	n, err = database.CountRows(ctx, "routes")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	coll, err := database.LoadCollection(ctx, freshID)
	require.NoError(t, err)
	assert.Equal(t, "B", coll.Candidates[0].Summary)
}
