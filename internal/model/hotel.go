package model

import "time"

// Hotel is a row of the `hotels` table.  Slug is derived from Name on
// creation and stays stable when the hotel is renamed.
type Hotel struct {
    ID           uint64    // hotels.id
    Name         string    // hotels.name
    Slug         string    // hotels.slug
    Location     string    // hotels.location
    Address      *string   // hotels.address (nullable)
    ContactPhone *string   // hotels.contact_phone (nullable)
    Category     *string   // hotels.category (nullable)
    Rating       *float64  // hotels.rating (nullable, 0.0–5.0)
    ImageURL     *string   // hotels.image_url (nullable)
    CreatedAt    time.Time // hotels.created_at
    UpdatedAt    time.Time // hotels.updated_at
}

// HotelPatch holds the updatable hotel columns.
type HotelPatch struct {
    Name         *string
    Location     *string
    Address      *string
    ContactPhone *string
    Category     *string
    Rating       *float64
    ImageURL     *string
}

func (p HotelPatch) Empty() bool {
    return p.Name == nil && p.Location == nil && p.Address == nil &&
        p.ContactPhone == nil && p.Category == nil && p.Rating == nil && p.ImageURL == nil
}

// HotelStats aggregates occupancy numbers for a single hotel.
type HotelStats struct {
    HotelID           uint64
    Rooms             int
    AvailableRooms    int
    Bookings          int
    ConfirmedBookings int
    RevenueCents      int64 // sum of confirmed booking totals
}
