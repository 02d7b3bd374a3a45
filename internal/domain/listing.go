package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCurrency is the Central African CFA franc.
const DefaultCurrency = "XAF"

// MaxListingImages caps the gallery of a single listing.
const MaxListingImages = 10

// --- Category Enum ---

// Category is one of the fixed catalogue sections.
type Category string

const (
	CategoryVehicles    Category = "vehicles"
	CategoryRealEstate  Category = "real_estate"
	CategoryElectronics Category = "electronics"
	CategoryPhones      Category = "phones"
	CategoryFashion     Category = "fashion"
	CategoryHome        Category = "home"
	CategoryJobs        Category = "jobs"
	CategoryServices    Category = "services"
	CategoryAgriculture Category = "agriculture"
	CategoryOther       Category = "other"
)

// IsValid checks if the Category is one of the defined constants.
func (c Category) IsValid() bool {
	switch c {
	case CategoryVehicles, CategoryRealEstate, CategoryElectronics, CategoryPhones, CategoryFashion,
		CategoryHome, CategoryJobs, CategoryServices, CategoryAgriculture, CategoryOther:
		return true
	}
	return false
}

// --- Listing Entity ---

// Listing is a classified ad. Guest listings have no owner and can't be
// edited after creation.
type Listing struct {
	ID             string
	OwnerID        string // empty for guest listings
	Title          string
	Description    string
	Price          int64
	Currency       string
	Category       Category
	Quartier       string
	Arrondissement string
	Phone          string
	Images         []string
	IsGuest        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CoverImage returns the first image URL, or "" when the listing has none.
func (l *Listing) CoverImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}

// ListingDetails is the editable part of a listing.
type ListingDetails struct {
	Title          string
	Description    string
	Price          int64
	Currency       string
	Category       Category
	Quartier       string
	Arrondissement string
	Phone          string
}

// Normalize trims the details, fills the default currency and validates them.
func (d *ListingDetails) Normalize() error {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	d.Quartier = strings.TrimSpace(d.Quartier)
	d.Arrondissement = strings.TrimSpace(d.Arrondissement)
	d.Phone = strings.TrimSpace(d.Phone)
	if d.Currency == "" {
		d.Currency = DefaultCurrency
	}

	if d.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(d.Title) > 120 {
		return fmt.Errorf("%w: title is too long", ErrInvalidInput)
	}
	if d.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	if !d.Category.IsValid() {
		return fmt.Errorf("%w: unknown category '%s'", ErrInvalidInput, d.Category)
	}
	return nil
}

// Apply copies the details onto the listing.
func (l *Listing) Apply(d ListingDetails) {
	l.Title = d.Title
	l.Description = d.Description
	l.Price = d.Price
	l.Currency = d.Currency
	l.Category = d.Category
	l.Quartier = d.Quartier
	l.Arrondissement = d.Arrondissement
	l.Phone = d.Phone
}

// --- ListingFilter for Querying ---

// ListingFilter holds parameters for searching listings.
type ListingFilter struct {
	Category       Category
	Quartier       string
	Arrondissement string
	Query          string // matched against title and description
	MinPrice       *int64
	MaxPrice       *int64
	OwnerID        string
	Page           int
	Limit          int
}

// Offset is the number of rows skipped for the current page.
func (f ListingFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
