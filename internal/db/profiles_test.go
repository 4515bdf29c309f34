package db

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sholl.report/internal/sholl"
	"github.com/banshee-data/sholl.report/internal/timeutil"
)

func sampleProfile() *sholl.Profile {
	return &sholl.Profile{
		Identifier:  "neuron-01",
		Dimensions:  3,
		Center:      sholl.Point3D{X: 1, Y: 2, Z: 3},
		Calibration: &sholl.Calibration{PixelWidth: 0.5, PixelHeight: 0.5, PixelDepth: 1, Unit: "um"},
		StepSize:    5,
		Properties:  map[string]string{sholl.KeySource: sholl.SourceTrace},
		Entries: []sholl.ProfileEntry{
			{Radius: 0, Crossings: 1},
			{Radius: 5, Crossings: 3},
			{Radius: 10, Crossings: 0},
		},
	}
}

func TestProfileStore_InsertGet(t *testing.T) {
	store := NewProfileStore(newTestDB(t))
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.clock = timeutil.NewMockClock(fixed)

	want := sampleProfile()
	id, err := store.Insert(want)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.True(t, fixed.Equal(got.CreatedAt))
	if diff := cmp.Diff(want, got.Profile); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileStore_NoCalibrationNoProperties(t *testing.T) {
	store := NewProfileStore(newTestDB(t))
	p := &sholl.Profile{Identifier: "bare", Dimensions: 2, Entries: []sholl.ProfileEntry{{Radius: 1, Crossings: 2}}}

	id, err := store.Insert(p)
	require.NoError(t, err)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Nil(t, got.Profile.Calibration)
	assert.Empty(t, got.Profile.Properties)
	assert.Equal(t, p.Entries, got.Profile.Entries)
}

func TestProfileStore_NegativeCrossingsRoundTrip(t *testing.T) {
	store := NewProfileStore(newTestDB(t))
	p := &sholl.Profile{Identifier: "fork", Dimensions: 3, Entries: []sholl.ProfileEntry{
		{Radius: 0, Crossings: 1}, {Radius: 2, Crossings: -1},
	}}
	id, err := store.Insert(p)
	require.NoError(t, err)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, -1, got.Profile.Entries[1].Crossings)
}

func TestProfileStore_List(t *testing.T) {
	store := NewProfileStore(newTestDB(t))
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store.clock = clock

	a := sampleProfile()
	b := sampleProfile()
	b.Identifier = "neuron-02"
	c := sampleProfile()

	idA, err := store.Insert(a)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	idB, err := store.Insert(b)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	idC, err := store.Insert(c)
	require.NoError(t, err)

	all, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{idC, idB, idA}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, 3, all[0].SampleCount)
	assert.Equal(t, 3, all[0].MaxCrossings)
	assert.Equal(t, sholl.Point3D{X: 1, Y: 2, Z: 3}, all[0].Center)

	only, err := store.List("neuron-01", 10)
	require.NoError(t, err)
	assert.Len(t, only, 2)

	limited, err := store.List("", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, idC, limited[0].ID)

	none, err := store.List("missing", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestProfileStore_Delete(t *testing.T) {
	db := newTestDB(t)
	store := NewProfileStore(db)

	id, err := store.Insert(sampleProfile())
	require.NoError(t, err)
	require.NoError(t, store.Delete(id))

	_, err = store.Get(id)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sholl_profile_entries").Scan(&n))
	assert.Equal(t, 0, n, "entries cascade with their profile")

	assert.ErrorIs(t, store.Delete(id), ErrProfileNotFound)
}

func TestProfileStore_Errors(t *testing.T) {
	store := NewProfileStore(newTestDB(t))

	_, err := store.Insert(nil)
	assert.Error(t, err)

	_, err = store.Get("00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
