package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tregorent/backend/models"
)

type addCall struct {
	kind   models.ListingKind
	fields models.ListingFields
	staged []StagedImage
}

type updateCall struct {
	kind     models.ListingKind
	id       string
	fields   models.ListingFields
	retained []string
	staged   []StagedImage
}

// recordingWriter captures submissions. block, when set, holds AddListing
// until it is closed.
type recordingWriter struct {
	mu      sync.Mutex
	adds    []addCall
	updates []updateCall
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (w *recordingWriter) AddListing(ctx context.Context, kind models.ListingKind, fields models.ListingFields, staged []StagedImage) (string, error) {
	if w.entered != nil {
		close(w.entered)
	}
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.adds = append(w.adds, addCall{kind, fields, staged})
	if w.err != nil {
		return "", w.err
	}
	return "new-id", nil
}

func (w *recordingWriter) UpdateListing(ctx context.Context, kind models.ListingKind, id string, fields models.ListingFields, retained []string, staged []StagedImage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.updates = append(w.updates, updateCall{kind, id, fields, retained, staged})
	return w.err
}

func seededApartment() *models.Listing {
	return &models.Listing{
		ID:            "apt-1",
		Kind:          models.KindApartment,
		ListingFields: lakeHouse(),
		Images:        []string{"u1", "u2", "u3"},
		CreatedAt:     time.Now(),
	}
}

func TestNewDraftCopiesSeed(t *testing.T) {
	seed := seededApartment()
	d := NewDraft(models.KindApartment, seed)

	view := d.View()
	assert.True(t, d.IsEdit())
	assert.Equal(t, "apt-1", view.ListingID)
	assert.Equal(t, seed.ListingFields, view.Fields)
	assert.Equal(t, seed.Images, view.Retained)
	assert.Equal(t, 1, view.FreeSlots)

	// The draft owns its copy
	require.NoError(t, d.RemoveRetained(0))
	assert.Equal(t, []string{"u1", "u2", "u3"}, seed.Images)
}

func TestNewDraftDefaults(t *testing.T) {
	car := NewDraft(models.KindCar, nil).View()
	assert.Equal(t, models.TransmissionAutomatic, car.Fields.Transmission)
	assert.Equal(t, models.AirConditioningYes, car.Fields.AirConditioning)
	assert.Empty(t, car.Retained)
	assert.Equal(t, models.MaxImages, car.FreeSlots)
}

func TestSetFieldReplacesOnlyThatField(t *testing.T) {
	d := NewDraft(models.KindApartment, seededApartment())

	require.NoError(t, d.SetField("price", "425000"))

	want := lakeHouse()
	want.Price = 425000
	assert.Equal(t, want, d.View().Fields)
}

func TestSetFieldsIsAllOrNothing(t *testing.T) {
	d := NewDraft(models.KindApartment, nil)

	err := d.SetFields(map[string]string{"name": "Loft", "bedrooms": "two"})
	require.Error(t, err)
	assert.Equal(t, "", d.View().Fields.Name)

	err = d.SetField("model", "Corolla")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestStageEnforcesImageCeiling(t *testing.T) {
	testCases := []struct {
		name        string
		retained    int
		staged      int
		selected    int
		expectError bool
	}{
		{"empty draft takes four", 0, 0, 4, false},
		{"empty draft rejects five", 0, 0, 5, true},
		{"retained and staged fill up", 2, 1, 1, false},
		{"retained and staged overflow", 2, 1, 2, true},
		{"full draft rejects one", 3, 1, 1, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seed := seededApartment()
			seed.Images = seed.Images[:tc.retained]
			d := NewDraft(models.KindApartment, seed)

			before := make([]string, tc.staged)
			for i := range before {
				before[i] = string(rune('a' + i))
			}
			require.NoError(t, d.Stage(images(before...)))
			stagedBefore := d.View().Staged

			selected := make([]string, tc.selected)
			for i := range selected {
				selected[i] = string(rune('p' + i))
			}

			var err error
			assert.NotPanics(t, func() { err = d.Stage(images(selected...)) })

			if tc.expectError {
				assert.ErrorIs(t, err, ErrTooManyImages)
				assert.Equal(t, stagedBefore, d.View().Staged)
			} else {
				assert.NoError(t, err)
				assert.Len(t, d.View().Staged, tc.staged+tc.selected)
			}
		})
	}
}

func TestRemoveStaged(t *testing.T) {
	d := NewDraft(models.KindCar, nil)
	require.NoError(t, d.Stage(images("a", "b", "c")))

	require.NoError(t, d.RemoveStaged("b"))

	staged := d.View().Staged
	require.Len(t, staged, 2)
	assert.Equal(t, "a", staged[0].ID)
	assert.Equal(t, "c", staged[1].ID)
	assert.ErrorIs(t, d.RemoveStaged("b"), ErrImageNotFound)
	assert.ErrorIs(t, d.RemoveRetained(0), ErrImageNotFound)
}

func TestEditRemoveOneImageSubmitsWithoutUpload(t *testing.T) {
	seed := seededApartment()
	d := NewDraft(models.KindApartment, seed)
	w := &recordingWriter{}

	require.NoError(t, d.RemoveRetained(1))
	id, err := d.Submit(context.Background(), w)

	require.NoError(t, err)
	assert.Equal(t, "apt-1", id)
	assert.Empty(t, w.adds)
	require.Len(t, w.updates, 1)
	call := w.updates[0]
	assert.Equal(t, "apt-1", call.id)
	assert.Equal(t, []string{"u1", "u3"}, call.retained)
	assert.Len(t, call.retained, len(seed.Images)-1)
	assert.Empty(t, call.staged)
}

func TestCreateSubmitsStagedInSelectionOrder(t *testing.T) {
	d := NewDraft(models.KindApartment, nil)
	w := &recordingWriter{}

	require.NoError(t, d.SetFields(map[string]string{
		"name": "Lake House", "price": "500000", "bedrooms": "2", "bathrooms": "1", "description": "Nice",
	}))
	require.NoError(t, d.Stage(images("first.jpg", "second.jpg")))
	require.NoError(t, d.Stage(images("third.jpg")))

	id, err := d.Submit(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)

	require.Len(t, w.adds, 1)
	call := w.adds[0]
	assert.Equal(t, lakeHouse(), call.fields)
	require.Len(t, call.staged, 3)
	assert.Equal(t, "first.jpg", call.staged[0].Filename)
	assert.Equal(t, "second.jpg", call.staged[1].Filename)
	assert.Equal(t, "third.jpg", call.staged[2].Filename)

	// Reset to an empty create draft
	view := d.View()
	assert.Equal(t, models.DefaultFields(models.KindApartment), view.Fields)
	assert.Empty(t, view.Staged)
	assert.Empty(t, view.Retained)
	assert.False(t, d.IsEdit())
}

func TestSubmitFailureLeavesDraftUntouched(t *testing.T) {
	d := NewDraft(models.KindApartment, seededApartment())
	require.NoError(t, d.RemoveRetained(0))
	require.NoError(t, d.Stage(images("new.jpg")))
	before := d.View()

	w := &recordingWriter{err: &UploadError{Path: "apartments/1_new.jpg", Err: errors.New("boom")}}
	_, err := d.Submit(context.Background(), w)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, before, d.View())
}

func TestSubmitWhileInFlight(t *testing.T) {
	d := NewDraft(models.KindApartment, nil)
	require.NoError(t, d.SetFields(map[string]string{"name": "Loft", "description": "d"}))
	w := &recordingWriter{block: make(chan struct{}), entered: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background(), w)
		done <- err
	}()
	<-w.entered

	_, err := d.Submit(context.Background(), w)
	assert.ErrorIs(t, err, ErrSubmitInProgress)
	assert.ErrorIs(t, d.Stage(images("late.jpg")), ErrSubmitInProgress)
	assert.True(t, d.View().Submitting)

	close(w.block)
	require.NoError(t, <-done)
	assert.Len(t, w.adds, 1)
	assert.False(t, d.View().Submitting)
}

func TestDraftStoreOwnershipAndSweep(t *testing.T) {
	store := NewDraftStore(time.Hour)
	d := store.Open("admin-1", models.KindCar, nil)

	got, err := store.Get("admin-1", d.ID())
	require.NoError(t, err)
	assert.Same(t, d, got)

	_, err = store.Get("admin-2", d.ID())
	assert.ErrorIs(t, err, ErrDraftNotFound)

	assert.Equal(t, 0, store.Sweep())

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Len())
	assert.ErrorIs(t, store.Discard("admin-1", d.ID()), ErrDraftNotFound)
}

func TestSetFieldRejectsBadNumbers(t *testing.T) {
	d := NewDraft(models.KindApartment, nil)

	assert.ErrorIs(t, d.SetField("price", "cheap"), ErrInvalidValue)
	assert.ErrorIs(t, d.SetField("bedrooms", "2.5"), ErrInvalidValue)
	assert.NoError(t, d.SetField("bedrooms", ""))
}
