package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/media"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

type RoomHandler struct {
	Rooms   *repository.RoomRepo
	Checker *booking.Checker
	Cache   CacheInvalidator
	Media   media.Uploader
}

func NewRoomHandler(rooms *repository.RoomRepo, checker *booking.Checker, cache CacheInvalidator, up media.Uploader) *RoomHandler {
	return &RoomHandler{Rooms: rooms, Checker: checker, Cache: cache, Media: up}
}

// Prices arrive either as a decimal amount ("price_per_night": 120.5) or
// in cents; cents win when both are set.
type createRoomReq struct {
	HotelID            uint64   `json:"hotel_id" validate:"required,gt=0"`
	RoomType           *string  `json:"room_type" validate:"omitempty,max=50"`
	PricePerNight      *float64 `json:"price_per_night" validate:"omitempty,gt=0"`
	PricePerNightCents *int64   `json:"price_per_night_cents" validate:"omitempty,gt=0"`
	Capacity           *int     `json:"capacity" validate:"omitempty,gte=1,lte=20"`
	Amenities          *string  `json:"amenities" validate:"omitempty,max=2000"`
	ImageURL           *string  `json:"image_url" validate:"omitempty,url,max=500"`
	IsAvailable        *bool    `json:"is_available"`
}

type updateRoomReq struct {
	RoomType           *string  `json:"room_type" validate:"omitempty,max=50"`
	PricePerNight      *float64 `json:"price_per_night" validate:"omitempty,gt=0"`
	PricePerNightCents *int64   `json:"price_per_night_cents" validate:"omitempty,gt=0"`
	Capacity           *int     `json:"capacity" validate:"omitempty,gte=1,lte=20"`
	Amenities          *string  `json:"amenities" validate:"omitempty,max=2000"`
	ImageURL           *string  `json:"image_url" validate:"omitempty,url,max=500"`
	IsAvailable        *bool    `json:"is_available"`
}

type availabilityReq struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

func priceCents(amount *float64, cents *int64) *int64 {
	if cents != nil {
		return cents
	}
	if amount != nil {
		v := model.CentsFromAmount(*amount)
		return &v
	}
	return nil
}

func (h *RoomHandler) invalidate(c echo.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(c.Request().Context(), middleware.ScopeRooms); err != nil {
		log.Warnf("cache invalidate %s: %v", middleware.ScopeRooms, err)
	}
}

// roomFilter reads ?hotel_id, ?min_capacity and ?max_price (a decimal
// amount).
func roomFilter(c echo.Context) (repository.RoomFilter, error) {
	var f repository.RoomFilter
	if v := c.QueryParam("hotel_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return f, fmt.Errorf("hotel_id must be a positive integer")
		}
		f.HotelID = id
	}
	if v := c.QueryParam("min_capacity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, fmt.Errorf("min_capacity must be a positive integer")
		}
		f.MinCapacity = n
	}
	if v := c.QueryParam("max_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || p <= 0 {
			return f, fmt.Errorf("max_price must be a positive number")
		}
		f.MaxPriceCents = model.CentsFromAmount(p)
	}
	f.OnlyAvailable = c.QueryParam("only_available") == "true"
	return f, nil
}

func (h *RoomHandler) list(c echo.Context, onlyAvailable bool) error {
	f, err := roomFilter(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	if onlyAvailable {
		f.OnlyAvailable = true
	}
	p, err := pageOf(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rooms, total, err := h.Rooms.List(ctx, f, p)
	if err != nil {
		return repoErr(c, err, "list rooms")
	}
	out := make([]roomResp, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, newRoomResp(rm))
	}
	return list(c, out, p, total)
}

func (h *RoomHandler) List(c echo.Context) error { return h.list(c, false) }

// Available lists rooms whose operator flag is set.  It says nothing about
// dates; use Availability for that.
func (h *RoomHandler) Available(c echo.Context) error { return h.list(c, true) }

func (h *RoomHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rm, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "load room")
	}
	return c.JSON(http.StatusOK, newRoomResp(*rm))
}

// Availability reports whether the room is free for the requested stay and
// lists the confirmed bookings in the way.
func (h *RoomHandler) Availability(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	in, err := parseDate(c.QueryParam("check_in_date"))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "check_in_date must be YYYY-MM-DD")
	}
	out, err := parseDate(c.QueryParam("check_out_date"))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "check_out_date must be YYYY-MM-DD")
	}
	if !in.Before(out) {
		return errJSON(c, http.StatusBadRequest, "check-out date must be after check-in date")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Rooms.GetByID(ctx, id); err != nil {
		return repoErr(c, err, "load room")
	}
	conflicts, err := h.Checker.Conflicts(ctx, id, in, out)
	if err != nil {
		return bookingErr(c, err)
	}
	views := make([]bookingResp, 0, len(conflicts))
	for _, b := range conflicts {
		views = append(views, newBookingResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id":        id,
		"check_in_date":  in.Format(dateLayout),
		"check_out_date": out.Format(dateLayout),
		"nights":         model.NightsBetween(in, out),
		"available":      len(conflicts) == 0,
		"conflicts":      views,
	})
}

// Create adds a room to an existing hotel (admin).
func (h *RoomHandler) Create(c echo.Context) error {
	var req createRoomReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	price := priceCents(req.PricePerNight, req.PricePerNightCents)
	if price == nil || *price <= 0 {
		return errJSON(c, http.StatusBadRequest, "price_per_night is required")
	}
	rm := model.Room{
		HotelID:            req.HotelID,
		RoomType:           req.RoomType,
		PricePerNightCents: *price,
		Capacity:           req.Capacity,
		Amenities:          req.Amenities,
		ImageURL:           req.ImageURL,
		IsAvailable:        true,
	}
	if req.IsAvailable != nil {
		rm.IsAvailable = *req.IsAvailable
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Rooms.Create(ctx, &rm); err != nil {
		return repoErr(c, err, "create room")
	}
	h.invalidate(c)
	created, err := h.Rooms.GetByID(ctx, rm.ID)
	if err != nil {
		return repoErr(c, err, "load room")
	}
	return c.JSON(http.StatusCreated, newRoomResp(*created))
}

// Update patches a room (admin).  The hotel cannot be changed.
func (h *RoomHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	var req updateRoomReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	patch := model.RoomPatch{
		RoomType:           req.RoomType,
		PricePerNightCents: priceCents(req.PricePerNight, req.PricePerNightCents),
		Capacity:           req.Capacity,
		Amenities:          req.Amenities,
		ImageURL:           req.ImageURL,
		IsAvailable:        req.IsAvailable,
	}
	return h.apply(c, id, patch)
}

// SetAvailability flips the room's listing flag (admin).
func (h *RoomHandler) SetAvailability(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	var req availabilityReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	return h.apply(c, id, model.RoomPatch{IsAvailable: req.IsAvailable})
}

func (h *RoomHandler) apply(c echo.Context, id uint64, patch model.RoomPatch) error {
	if patch.Empty() {
		return errJSON(c, http.StatusBadRequest, "no fields to update")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Rooms.Update(ctx, id, patch); err != nil {
		return repoErr(c, err, "update room")
	}
	h.invalidate(c)
	rm, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "load room")
	}
	return c.JSON(http.StatusOK, newRoomResp(*rm))
}

// Delete removes a room and its bookings (admin).
func (h *RoomHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Rooms.Delete(ctx, id); err != nil {
		return repoErr(c, err, "delete room")
	}
	h.invalidate(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *RoomHandler) UploadImage(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Rooms.GetByID(ctx, id); err != nil {
		return repoErr(c, err, "load room")
	}
	url, err := uploadImage(c, h.Media, "rooms", fmt.Sprintf("room_%d", id))
	if err != nil {
		return imageErr(c, err)
	}
	if err := h.Rooms.Update(ctx, id, model.RoomPatch{ImageURL: &url}); err != nil {
		return repoErr(c, err, "update room")
	}
	h.invalidate(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "image_url": url})
}
