package conflict

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_GenerateAlternatives(t *testing.T) {
	t.Run("never returns more than three slots and each is free", func(t *testing.T) {
		// given
		f := setup(t)
		f.window(t, time.Monday, tod(8, 0), tod(18, 0))
		f.booking(t, monday, tod(8, 0), tod(9, 0), "Early")
		f.booking(t, monday, tod(12, 0), tod(13, 0), "Lunch")

		// when
		slots, err := f.engine.GenerateAlternatives(f.ctx, instructorId, at(monday, 12, 0), at(monday, 13, 30), uuid.NullUUID{})

		// then
		require.NoError(t, err)
		require.Len(t, slots, MaxAlternatives)
		for _, slot := range slots {
			assert.Equal(t, 90*time.Minute, slot.Duration())
			conflicts, err := f.engine.evaluate(f.ctx, instructorId, slot.Start, slot.End, uuid.NullUUID{})
			require.NoError(t, err)
			assert.Empty(t, conflicts)
		}
		assert.Equal(t, at(monday, 9, 0), slots[0].Start)
	})

	t.Run("stays inside the business window of the same day", func(t *testing.T) {
		f := setup(t)
		f.window(t, time.Monday, tod(6, 0), tod(22, 0))
		f.booking(t, monday, tod(8, 0), tod(17, 0), "All day workshop")

		slots, err := f.engine.GenerateAlternatives(f.ctx, instructorId, at(monday, 10, 0), at(monday, 11, 0), uuid.NullUUID{})

		require.NoError(t, err)
		require.Len(t, slots, 1)
		assert.Equal(t, at(monday, 17, 0), slots[0].Start)
		assert.Equal(t, at(monday, 18, 0), slots[0].End)
	})

	t.Run("returns nothing when the duration exceeds the business window", func(t *testing.T) {
		f := setup(t)
		f.window(t, time.Monday, tod(0, 0), tod(23, 0))

		slots, err := f.engine.GenerateAlternatives(f.ctx, instructorId, at(monday, 7, 0), at(monday, 18, 0), uuid.NullUUID{})

		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("honours the excluded booking", func(t *testing.T) {
		f := setup(t)
		f.window(t, time.Monday, tod(9, 0), tod(10, 0))
		own := f.booking(t, monday, tod(9, 0), tod(10, 0), "Own")

		slots, err := f.engine.GenerateAlternatives(f.ctx, instructorId, at(monday, 9, 0), at(monday, 10, 0), uuid.NullUUID{UUID: own.Id, Valid: true})

		require.NoError(t, err)
		require.Len(t, slots, 1)
		assert.Equal(t, at(monday, 9, 0), slots[0].Start)
	})
}

func TestEngine_ListFreeSlots(t *testing.T) {
	t.Run("marks slots inside declared windows", func(t *testing.T) {
		// given
		f := setup(t)
		f.window(t, time.Monday, tod(9, 0), tod(12, 0))
		f.window(t, time.Monday, tod(14, 0), tod(15, 0))
		f.booking(t, monday, tod(10, 0), tod(11, 0), "Standup")

		// when
		slots, err := f.engine.ListFreeSlots(f.ctx, instructorId, monday, 60)

		// then
		require.NoError(t, err)
		require.Len(t, slots, 6)
		expected := []struct {
			start     time.Time
			available bool
		}{
			{at(monday, 9, 0), true},
			{at(monday, 9, 30), false},
			{at(monday, 10, 0), false},
			{at(monday, 10, 30), false},
			{at(monday, 11, 0), true},
			{at(monday, 14, 0), true},
		}
		for i, e := range expected {
			assert.Equal(t, e.start, slots[i].Start, "slot %d", i)
			assert.Equal(t, e.available, slots[i].Available, "slot %d", i)
			if !e.available {
				assert.Contains(t, slots[i].Reason, "Standup")
			} else {
				assert.Empty(t, slots[i].Reason)
			}
		}
	})

	t.Run("returns no slots for a day without windows", func(t *testing.T) {
		f := setup(t)

		slots, err := f.engine.ListFreeSlots(f.ctx, instructorId, monday, 30)

		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("rejects non-positive durations", func(t *testing.T) {
		f := setup(t)

		_, err := f.engine.ListFreeSlots(f.ctx, instructorId, monday, 0)

		assert.ErrorIs(t, err, ErrInvalidDuration)
	})
}
