package models

// Roles stored on the per-user profile document
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Collections in the document store
const (
	CollectionApartments   = "apartments"
	CollectionCars         = "cars"
	CollectionReservations = "reservations"
	CollectionUsers        = "users"
)

// MaxImages is the most images a single listing may carry.
const MaxImages = 4

// Car option values offered by the listing form
const (
	TransmissionAutomatic = "Automatic"
	TransmissionManual    = "Manual"
	AirConditioningYes    = "Yes"
	AirConditioningNo     = "No"
)
