package model

import "time"

// Room belongs to exactly one hotel.  HotelID is fixed at creation; the
// patch type deliberately has no hotel field.
//
// Fields:
//  PricePerNightCents – nightly price in cents, snapshotted into a
//                       booking's total at creation time.
//  IsAvailable        – operator flag for listings; it does not take part
//                       in booking conflict checks.
type Room struct {
    ID                 uint64    // rooms.id
    HotelID            uint64    // rooms.hotel_id
    RoomType           *string   // rooms.room_type (nullable)
    PricePerNightCents int64     // rooms.price_per_night_cents
    Capacity           *int      // rooms.capacity (nullable)
    Amenities          *string   // rooms.amenities (nullable)
    ImageURL           *string   // rooms.image_url (nullable)
    IsAvailable        bool      // rooms.is_available
    CreatedAt          time.Time // rooms.created_at
}

type RoomPatch struct {
    RoomType           *string
    PricePerNightCents *int64
    Capacity           *int
    Amenities          *string
    ImageURL           *string
    IsAvailable        *bool
}

func (p RoomPatch) Empty() bool {
    return p.RoomType == nil && p.PricePerNightCents == nil && p.Capacity == nil &&
        p.Amenities == nil && p.ImageURL == nil && p.IsAvailable == nil
}
