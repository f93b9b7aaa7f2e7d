package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tregorent/backend/database"
	"tregorent/backend/migrations"
	"tregorent/backend/models"
	"tregorent/backend/storage"
)

// fakeBlobs records uploads. Files whose name contains "fail" are rejected;
// a per-file delay lets tests finish uploads out of input order.
type fakeBlobs struct {
	mu     sync.Mutex
	paths  []string
	delays map[string]time.Duration
}

func (f *fakeBlobs) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	for name, d := range f.delays {
		if strings.HasSuffix(path, name) {
			time.Sleep(d)
		}
	}
	if strings.Contains(path, "fail") {
		return "", errors.New("bucket unavailable")
	}

	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	return "https://cdn.test/" + path, nil
}

func (f *fakeBlobs) uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

// failingDocs wraps a store and fails every write.
type failingDocs struct {
	storage.DocumentStore
}

func (failingDocs) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	return "", errors.New("permission denied")
}

func newTestGateway(t *testing.T) (*Gateway, *storage.SQLiteStore, *fakeBlobs) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, migrations.CreateBaseSchema(db))
	t.Cleanup(func() { db.Close() })

	docs := storage.NewSQLiteStore(db)
	blobs := &fakeBlobs{}
	return NewGateway(docs, blobs), docs, blobs
}

func lakeHouse() models.ListingFields {
	return models.ListingFields{Name: "Lake House", Price: 500000, Description: "Nice", Bedrooms: 2, Bathrooms: 1}
}

func images(names ...string) []StagedImage {
	out := make([]StagedImage, 0, len(names))
	for _, n := range names {
		out = append(out, StagedImage{ID: n, Filename: n, ContentType: "image/jpeg", Data: []byte(n)})
	}
	return out
}

func TestAddListingKeepsSelectionOrder(t *testing.T) {
	gw, _, blobs := newTestGateway(t)
	blobs.delays = map[string]time.Duration{"one.jpg": 30 * time.Millisecond, "two.jpg": 15 * time.Millisecond}
	ctx := context.Background()

	id, err := gw.AddListing(ctx, models.KindApartment, lakeHouse(), images("one.jpg", "two.jpg", "three.jpg"))
	require.NoError(t, err)

	listing, err := gw.GetListing(ctx, models.KindApartment, id)
	require.NoError(t, err)
	require.Len(t, listing.Images, 3)
	assert.True(t, strings.HasSuffix(listing.Images[0], "_one.jpg"))
	assert.True(t, strings.HasSuffix(listing.Images[1], "_two.jpg"))
	assert.True(t, strings.HasSuffix(listing.Images[2], "_three.jpg"))
	assert.True(t, strings.HasPrefix(listing.Images[0], "https://cdn.test/apartments/"))
	assert.False(t, listing.CreatedAt.IsZero())
	assert.Nil(t, listing.UpdatedAt)
}

func TestAddListingUploadFailure(t *testing.T) {
	gw, docs, blobs := newTestGateway(t)
	ctx := context.Background()

	_, err := gw.AddListing(ctx, models.KindCar, models.ListingFields{
		Name: "Corolla", Price: 1, Description: "d", Model: "2019",
		Transmission: models.TransmissionManual, AirConditioning: models.AirConditioningNo,
	}, images("ok.jpg", "fail.jpg"))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Contains(t, uploadErr.Path, "cars/")
	// The successful upload is orphaned, no record was written
	assert.Equal(t, 1, blobs.uploads())
	all, err := docs.List(ctx, models.CollectionCars, "createdAt", true)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAddListingWriteFailure(t *testing.T) {
	gw, docs, blobs := newTestGateway(t)
	gw.docs = failingDocs{docs}

	_, err := gw.AddListing(context.Background(), models.KindApartment, lakeHouse(), images("a.jpg"))

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "create", writeErr.Op)
	assert.Equal(t, 1, blobs.uploads())
}

func TestAddListingRejectsInvalidFields(t *testing.T) {
	gw, _, blobs := newTestGateway(t)

	fields := lakeHouse()
	fields.Transmission = models.TransmissionManual
	_, err := gw.AddListing(context.Background(), models.KindApartment, fields, images("a.jpg"))

	assert.ErrorIs(t, err, models.ErrInvalidListing)
	assert.Equal(t, 0, blobs.uploads())
}

func TestUpdateListingAppendsUploadsAfterRetained(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	ctx := context.Background()

	id, err := gw.AddListing(ctx, models.KindApartment, lakeHouse(), images("a.jpg", "b.jpg", "c.jpg"))
	require.NoError(t, err)
	original, err := gw.GetListing(ctx, models.KindApartment, id)
	require.NoError(t, err)

	fields := original.ListingFields
	fields.Price = 450000
	retained := []string{original.Images[2], original.Images[0]}
	require.NoError(t, gw.UpdateListing(ctx, models.KindApartment, id, fields, retained, images("d.jpg")))

	updated, err := gw.GetListing(ctx, models.KindApartment, id)
	require.NoError(t, err)
	assert.Equal(t, float64(450000), updated.Price)
	require.Len(t, updated.Images, 3)
	assert.Equal(t, original.Images[2], updated.Images[0])
	assert.Equal(t, original.Images[0], updated.Images[1])
	assert.True(t, strings.HasSuffix(updated.Images[2], "_d.jpg"))
	assert.NotNil(t, updated.UpdatedAt)
	assert.True(t, updated.CreatedAt.Equal(original.CreatedAt))
}

func TestUpdateListingClearsOptionalFields(t *testing.T) {
	gw, docs, _ := newTestGateway(t)
	ctx := context.Background()

	fields := lakeHouse()
	fields.Place = "Kaloum"
	fields.Category = "Villa"
	fields.ContactLink = "https://wa.me/123"
	id, err := gw.AddListing(ctx, models.KindApartment, fields, nil)
	require.NoError(t, err)

	fields.Place = ""
	fields.ContactLink = ""
	fields.Description = "Renovated"
	require.NoError(t, gw.UpdateListing(ctx, models.KindApartment, id, fields, nil, nil))

	updated, err := gw.GetListing(ctx, models.KindApartment, id)
	require.NoError(t, err)
	assert.Empty(t, updated.Place)
	assert.Empty(t, updated.ContactLink)
	assert.Equal(t, "Villa", updated.Category)
	assert.Equal(t, "Renovated", updated.Description)

	doc, err := docs.Get(ctx, models.CollectionApartments, id)
	require.NoError(t, err)
	assert.NotContains(t, doc, "place")
	assert.NotContains(t, doc, "contactLink")
}

func TestUploadPathsAreDistinctForSameFilename(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	fixed := time.UnixMilli(1700000000000)
	gw.now = func() time.Time { return fixed }
	ctx := context.Background()

	staged := []StagedImage{
		{ID: "front", Filename: "image.jpg", ContentType: "image/jpeg", Data: []byte("front")},
		{ID: "back", Filename: "image.jpg", ContentType: "image/jpeg", Data: []byte("back")},
	}
	id, err := gw.AddListing(ctx, models.KindApartment, lakeHouse(), staged)
	require.NoError(t, err)

	listing, err := gw.GetListing(ctx, models.KindApartment, id)
	require.NoError(t, err)
	require.Len(t, listing.Images, 2)
	assert.NotEqual(t, listing.Images[0], listing.Images[1])
	assert.Equal(t, "https://cdn.test/apartments/1700000000000_0_image.jpg", listing.Images[0])
	assert.Equal(t, "https://cdn.test/apartments/1700000000000_1_image.jpg", listing.Images[1])
}

func TestUpdateListingMissingTarget(t *testing.T) {
	gw, _, _ := newTestGateway(t)

	err := gw.UpdateListing(context.Background(), models.KindApartment, "missing", lakeHouse(), nil, nil)

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.True(t, IsNotFound(err))
}

func TestUpdateListingRejectsFiveImages(t *testing.T) {
	gw, _, blobs := newTestGateway(t)

	err := gw.UpdateListing(context.Background(), models.KindApartment, "x", lakeHouse(),
		[]string{"u1", "u2", "u3"}, images("a.jpg", "b.jpg"))

	assert.ErrorIs(t, err, ErrTooManyImages)
	assert.Equal(t, 0, blobs.uploads())
}

func TestDeleteListingRemovesOnlyThatRecord(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		f := lakeHouse()
		f.Name = name
		id, err := gw.AddListing(ctx, models.KindApartment, f, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	before, err := gw.ListListings(ctx, models.KindApartment)
	require.NoError(t, err)

	require.NoError(t, gw.DeleteListing(ctx, models.KindApartment, ids[1]))

	after, err := gw.ListListings(ctx, models.KindApartment)
	require.NoError(t, err)
	require.Len(t, after, len(before)-1)
	for _, l := range after {
		assert.NotEqual(t, ids[1], l.ID)
		for _, b := range before {
			if b.ID == l.ID {
				assert.Equal(t, b, l)
			}
		}
	}
}

func TestListListingsNewestFirst(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	ctx := context.Background()

	for _, name := range []string{"old", "new"} {
		f := lakeHouse()
		f.Name = name
		_, err := gw.AddListing(ctx, models.KindApartment, f, nil)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	listings, err := gw.ListListings(ctx, models.KindApartment)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "new", listings[0].Name)
}

func TestSetReservationStatus(t *testing.T) {
	gw, docs, _ := newTestGateway(t)
	ctx := context.Background()

	id, err := docs.Create(ctx, models.CollectionReservations, map[string]any{
		"itemName": "Lake House", "status": "pending", "createdAt": storage.ServerTimestamp,
	})
	require.NoError(t, err)

	require.NoError(t, gw.SetReservationStatus(ctx, id, models.StatusAccepted))

	reservations, err := gw.ListReservations(ctx)
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.Equal(t, models.StatusAccepted, reservations[0].Status)

	assert.Error(t, gw.SetReservationStatus(ctx, id, "cancelled"))

	var writeErr *WriteError
	assert.ErrorAs(t, gw.SetReservationStatus(ctx, "missing", models.StatusRejected), &writeErr)
}

func TestCollectStats(t *testing.T) {
	gw, docs, _ := newTestGateway(t)
	ctx := context.Background()

	_, err := docs.Create(ctx, models.CollectionApartments, map[string]any{"name": "a", "contactClicks": 4, "createdAt": storage.ServerTimestamp})
	require.NoError(t, err)
	_, err = docs.Create(ctx, models.CollectionApartments, map[string]any{"name": "b", "createdAt": storage.ServerTimestamp})
	require.NoError(t, err)
	_, err = docs.Create(ctx, models.CollectionCars, map[string]any{"name": "c", "contactClicks": 2, "createdAt": storage.ServerTimestamp})
	require.NoError(t, err)

	stats, err := CollectStats(ctx, gw)
	require.NoError(t, err)
	assert.Equal(t, Stats{Apartments: 2, Cars: 1, ApartmentClicks: 4, CarClicks: 2}, stats)
}
