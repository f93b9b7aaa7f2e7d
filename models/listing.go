package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ListingKind tags which rentable item a listing describes.
type ListingKind string

const (
	KindApartment ListingKind = "apartment"
	KindCar       ListingKind = "car"
)

var validate = validator.New()

// ParseListingKind accepts both the singular kind and the collection name.
func ParseListingKind(s string) (ListingKind, error) {
	switch strings.ToLower(s) {
	case "apartment", "apartments":
		return KindApartment, nil
	case "car", "cars":
		return KindCar, nil
	}
	return "", fmt.Errorf("unknown listing kind %q", s)
}

// Collection returns the document collection holding listings of this kind.
func (k ListingKind) Collection() string {
	if k == KindCar {
		return CollectionCars
	}
	return CollectionApartments
}

// StoragePath returns the blob path prefix images of this kind are uploaded under.
func (k ListingKind) StoragePath() string {
	return k.Collection()
}

// Label is the human readable name used by the shell.
func (k ListingKind) Label() string {
	if k == KindCar {
		return "Car"
	}
	return "Apartment"
}

// ListingFields is the closed set of scalar fields an admin can edit.
// Apartment-only and car-only fields share the struct; Validate rejects
// values set for the other kind.
type ListingFields struct {
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Description string  `json:"description" validate:"required"`

	// Apartment
	Bedrooms    int    `json:"bedrooms,omitempty" validate:"gte=0"`
	Bathrooms   int    `json:"bathrooms,omitempty" validate:"gte=0"`
	Place       string `json:"place,omitempty"`
	Category    string `json:"category,omitempty"`
	ContactLink string `json:"contactLink,omitempty" validate:"omitempty,url"`

	// Car
	Model           string `json:"model,omitempty"`
	Transmission    string `json:"transmission,omitempty" validate:"omitempty,oneof=Automatic Manual"`
	AirConditioning string `json:"airConditioning,omitempty" validate:"omitempty,oneof=Yes No"`
}

// DefaultFields returns the initial draft values for a new listing of kind.
func DefaultFields(kind ListingKind) ListingFields {
	if kind == KindCar {
		return ListingFields{
			Transmission:    TransmissionAutomatic,
			AirConditioning: AirConditioningYes,
		}
	}
	return ListingFields{}
}

// ErrInvalidListing wraps every validation failure of ListingFields.
var ErrInvalidListing = errors.New("invalid listing")

// Validate checks the field tags and that only fields of kind are set.
func (f ListingFields) Validate(kind ListingKind) error {
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed %q", ErrInvalidListing, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidListing, err)
	}

	switch kind {
	case KindApartment:
		if f.Model != "" || f.Transmission != "" || f.AirConditioning != "" {
			return fmt.Errorf("%w: car fields set on an apartment", ErrInvalidListing)
		}
	case KindCar:
		if f.Bedrooms != 0 || f.Bathrooms != 0 || f.Place != "" || f.Category != "" || f.ContactLink != "" {
			return fmt.Errorf("%w: apartment fields set on a car", ErrInvalidListing)
		}
		if f.Model == "" {
			return fmt.Errorf("%w: field Model failed %q", ErrInvalidListing, "required")
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidListing, kind)
	}
	return nil
}

// Document returns the stored representation of the fields for kind.
// Only the fields belonging to kind are emitted.
func (f ListingFields) Document(kind ListingKind) map[string]any {
	doc := map[string]any{
		"name":        f.Name,
		"price":       f.Price,
		"description": f.Description,
	}
	if kind == KindCar {
		doc["model"] = f.Model
		doc["transmission"] = f.Transmission
		doc["airConditioning"] = f.AirConditioning
		return doc
	}

	doc["bedrooms"] = f.Bedrooms
	doc["bathrooms"] = f.Bathrooms
	if f.Place != "" {
		doc["place"] = f.Place
	}
	if f.Category != "" {
		doc["category"] = f.Category
	}
	if f.ContactLink != "" {
		doc["contactLink"] = f.ContactLink
	}
	return doc
}

// OptionalFields lists the fields of kind that Document omits when empty.
func OptionalFields(kind ListingKind) []string {
	if kind == KindCar {
		return nil
	}
	return []string{"place", "category", "contactLink"}
}

// Listing is a rentable apartment or car as persisted in the document store.
type Listing struct {
	ID   string      `json:"id"`
	Kind ListingKind `json:"kind"`
	ListingFields
	Images        []string   `json:"images"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
	ContactClicks *int       `json:"contactClicks,omitempty"`
}

// ListingFromDocument maps a stored document onto a Listing of kind.
// Fields outside the kind's closed set are ignored.
func ListingFromDocument(kind ListingKind, id string, doc map[string]any) Listing {
	l := Listing{
		ID:   id,
		Kind: kind,
		ListingFields: ListingFields{
			Name:        stringField(doc, "name"),
			Price:       floatField(doc, "price"),
			Description: stringField(doc, "description"),
		},
		Images:    stringsField(doc, "images"),
		CreatedAt: timeField(doc, "createdAt"),
	}

	if kind == KindCar {
		l.Model = stringField(doc, "model")
		l.Transmission = stringField(doc, "transmission")
		l.AirConditioning = stringField(doc, "airConditioning")
	} else {
		l.Bedrooms = int(floatField(doc, "bedrooms"))
		l.Bathrooms = int(floatField(doc, "bathrooms"))
		l.Place = stringField(doc, "place")
		l.Category = stringField(doc, "category")
		l.ContactLink = stringField(doc, "contactLink")
	}

	if t := timeField(doc, "updatedAt"); !t.IsZero() {
		l.UpdatedAt = &t
	}
	if _, ok := doc["contactClicks"]; ok {
		clicks := int(floatField(doc, "contactClicks"))
		l.ContactClicks = &clicks
	}
	return l
}

// Clicks returns the contact click counter, treating absence as zero.
func (l Listing) Clicks() int {
	if l.ContactClicks == nil {
		return 0
	}
	return *l.ContactClicks
}
