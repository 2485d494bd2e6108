package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gosimple/slug"
	"github.com/jinzhu/copier"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/hotel-booking/internal/media"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

// CacheInvalidator drops cached listings after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, scope string) error
}

type HotelHandler struct {
	Hotels *repository.HotelRepo
	Rooms  *repository.RoomRepo
	Cache  CacheInvalidator
	Media  media.Uploader
}

func NewHotelHandler(hotels *repository.HotelRepo, rooms *repository.RoomRepo, cache CacheInvalidator, up media.Uploader) *HotelHandler {
	return &HotelHandler{Hotels: hotels, Rooms: rooms, Cache: cache, Media: up}
}

type createHotelReq struct {
	Name         string   `json:"name" validate:"required,max=100"`
	Location     string   `json:"location" validate:"required,max=255"`
	Address      *string  `json:"address" validate:"omitempty,max=255"`
	ContactPhone *string  `json:"contact_phone" validate:"omitempty,max=20"`
	Category     *string  `json:"category" validate:"omitempty,max=50"`
	Rating       *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	ImageURL     *string  `json:"image_url" validate:"omitempty,url,max=500"`
}

type updateHotelReq struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Location     *string  `json:"location" validate:"omitempty,min=1,max=255"`
	Address      *string  `json:"address" validate:"omitempty,max=255"`
	ContactPhone *string  `json:"contact_phone" validate:"omitempty,max=20"`
	Category     *string  `json:"category" validate:"omitempty,max=50"`
	Rating       *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	ImageURL     *string  `json:"image_url" validate:"omitempty,url,max=500"`
}

const maxSlugAttempts = 50

// uniqueSlug derives a slug from name and appends -2, -3, ... until it
// is free.
func (h *HotelHandler) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "hotel"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := h.Hotels.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", repository.ErrConflict
}

func (h *HotelHandler) invalidate(ctx context.Context, scopes ...string) {
	if h.Cache == nil {
		return
	}
	for _, s := range scopes {
		if err := h.Cache.Invalidate(ctx, s); err != nil {
			log.Warnf("cache invalidate %s: %v", s, err)
		}
	}
}

// List returns hotels filtered by ?location and ?category, page by page.
func (h *HotelHandler) List(c echo.Context) error {
	p, err := pageOf(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	f := repository.HotelFilter{
		Location: strings.TrimSpace(c.QueryParam("location")),
		Category: strings.TrimSpace(c.QueryParam("category")),
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	hotels, total, err := h.Hotels.List(ctx, f, p)
	if err != nil {
		return repoErr(c, err, "list hotels")
	}
	out := make([]hotelResp, 0, len(hotels))
	for _, ht := range hotels {
		out = append(out, newHotelResp(ht))
	}
	return list(c, out, p, total)
}

func (h *HotelHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ht, err := h.Hotels.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "load hotel")
	}
	return c.JSON(http.StatusOK, newHotelResp(*ht))
}

func (h *HotelHandler) GetBySlug(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ht, err := h.Hotels.GetBySlug(ctx, strings.ToLower(c.Param("slug")))
	if err != nil {
		return repoErr(c, err, "load hotel")
	}
	return c.JSON(http.StatusOK, newHotelResp(*ht))
}

// ListRooms returns the rooms of one hotel.
func (h *HotelHandler) ListRooms(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	p, err := pageOf(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Hotels.GetByID(ctx, id); err != nil {
		return repoErr(c, err, "load hotel")
	}
	rooms, total, err := h.Rooms.List(ctx, repository.RoomFilter{HotelID: id}, p)
	if err != nil {
		return repoErr(c, err, "list rooms")
	}
	out := make([]roomResp, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, newRoomResp(rm))
	}
	return list(c, out, p, total)
}

// Create adds a hotel with a slug derived from its name (admin).
func (h *HotelHandler) Create(c echo.Context) error {
	var req createHotelReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	var ht model.Hotel
	_ = copier.Copy(&ht, &req)

	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.uniqueSlug(ctx, req.Name)
	if err != nil {
		return repoErr(c, err, "generate slug")
	}
	ht.Slug = s
	if err := h.Hotels.Create(ctx, &ht); err != nil {
		return repoErr(c, err, "create hotel")
	}
	h.invalidate(ctx, middleware.ScopeHotels)

	created, err := h.Hotels.GetByID(ctx, ht.ID)
	if err != nil {
		return repoErr(c, err, "load hotel")
	}
	return c.JSON(http.StatusCreated, newHotelResp(*created))
}

// Update patches a hotel (admin).  The slug is kept on rename.
func (h *HotelHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	var req updateHotelReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	var patch model.HotelPatch
	_ = copier.Copy(&patch, &req)
	if patch.Empty() {
		return errJSON(c, http.StatusBadRequest, "no fields to update")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Hotels.Update(ctx, id, patch); err != nil {
		return repoErr(c, err, "update hotel")
	}
	h.invalidate(ctx, middleware.ScopeHotels)
	ht, err := h.Hotels.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "load hotel")
	}
	return c.JSON(http.StatusOK, newHotelResp(*ht))
}

// Delete removes a hotel and, by cascade, its rooms and their bookings.
func (h *HotelHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Hotels.Delete(ctx, id); err != nil {
		return repoErr(c, err, "delete hotel")
	}
	h.invalidate(ctx, middleware.ScopeHotels, middleware.ScopeRooms)
	return c.NoContent(http.StatusNoContent)
}

// Stats reports room counts, booking counts and confirmed revenue.
func (h *HotelHandler) Stats(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.Hotels.Stats(ctx, id)
	if err != nil {
		return repoErr(c, err, "hotel stats")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hotel_id":           st.HotelID,
		"rooms":              st.Rooms,
		"available_rooms":    st.AvailableRooms,
		"bookings":           st.Bookings,
		"confirmed_bookings": st.ConfirmedBookings,
		"revenue_cents":      st.RevenueCents,
		"revenue":            model.FormatCents(st.RevenueCents),
	})
}

// UploadImage stores the multipart "image" file and sets it as the
// hotel's image (admin).
func (h *HotelHandler) UploadImage(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Hotels.GetByID(ctx, id); err != nil {
		return repoErr(c, err, "load hotel")
	}
	url, err := uploadImage(c, h.Media, "hotels", fmt.Sprintf("hotel_%d", id))
	if err != nil {
		return imageErr(c, err)
	}
	if err := h.Hotels.Update(ctx, id, model.HotelPatch{ImageURL: &url}); err != nil {
		return repoErr(c, err, "update hotel")
	}
	h.invalidate(ctx, middleware.ScopeHotels)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "image_url": url})
}

var (
	errNoImage       = errors.New(`multipart field "image" is required`)
	errImageTooLarge = fmt.Errorf("image exceeds %d MB", media.MaxImageBytes>>20)
)

// uploadImage reads the multipart "image" field, checks its type and size
// and hands it to the uploader.
func uploadImage(c echo.Context, up media.Uploader, folder, publicID string) (string, error) {
	if up == nil {
		return "", media.ErrDisabled
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return "", errNoImage
	}
	if fh.Size > media.MaxImageBytes {
		return "", errImageTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", errNoImage
	}
	defer f.Close()
	r, _, err := media.SniffImage(f)
	if err != nil {
		return "", err
	}
	return up.UploadImage(c.Request().Context(), folder, publicID, r)
}

func imageErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, media.ErrDisabled):
		return errJSON(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, media.ErrUnsupportedImage), errors.Is(err, errNoImage):
		return errJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, errImageTooLarge):
		return errJSON(c, http.StatusRequestEntityTooLarge, err.Error())
	}
	log.Errorf("image upload: %v", err)
	return errJSON(c, http.StatusBadGateway, "image upload failed")
}
