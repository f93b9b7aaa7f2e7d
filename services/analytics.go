package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"tregorent/backend/models"
)

// Stats is what the dashboard and analytics pages show.
type Stats struct {
	Apartments      int `json:"apartments"`
	Cars            int `json:"cars"`
	ApartmentClicks int `json:"apartmentClicks"`
	CarClicks       int `json:"carClicks"`
}

// ListingLister reads full listing collections.
type ListingLister interface {
	ListListings(ctx context.Context, kind models.ListingKind) ([]models.Listing, error)
}

// CollectStats loads both listing collections concurrently and totals
// their sizes and contact clicks.
func CollectStats(ctx context.Context, lister ListingLister) (Stats, error) {
	var apartments, cars []models.Listing

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		apartments, err = lister.ListListings(egCtx, models.KindApartment)
		return err
	})
	eg.Go(func() error {
		var err error
		cars, err = lister.ListListings(egCtx, models.KindCar)
		return err
	})
	if err := eg.Wait(); err != nil {
		return Stats{}, err
	}

	stats := Stats{Apartments: len(apartments), Cars: len(cars)}
	for _, a := range apartments {
		stats.ApartmentClicks += a.Clicks()
	}
	for _, c := range cars {
		stats.CarClicks += c.Clicks()
	}
	return stats, nil
}
