package handler

import (
	"net/http"

	"github.com/jinzhu/copier"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(users *repository.UserRepo) *UserHandler {
	return &UserHandler{Users: users}
}

type updateUserReq struct {
	FirstName    *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName     *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	ContactPhone *string `json:"contact_phone" validate:"omitempty,max=20"`
	Address      *string `json:"address" validate:"omitempty,max=255"`
	ProfileURL   *string `json:"profile_url" validate:"omitempty,url,max=500"`
	Role         *string `json:"role" validate:"omitempty,oneof=user admin"`
}

// List returns users page by page (admin).
func (h *UserHandler) List(c echo.Context) error {
	p, err := pageOf(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, total, err := h.Users.List(ctx, p)
	if err != nil {
		return repoErr(c, err, "list users")
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResp(u))
	}
	return list(c, out, p, total)
}

// Get returns a user to the user themself or an admin.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	if !selfOrAdmin(c, id) {
		return forbidden(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "load user")
	}
	return c.JSON(http.StatusOK, newUserResp(u))
}

// Update patches a profile.  Only admins may change a role.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	if !selfOrAdmin(c, id) {
		return forbidden(c)
	}
	var req updateUserReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	var patch model.UserPatch
	_ = copier.Copy(&patch, &req)
	if !middleware.IsAdmin(c) {
		if patch.Role != nil {
			return forbidden(c)
		}
	}
	if patch.Empty() {
		return errJSON(c, http.StatusBadRequest, "no fields to update")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Update(ctx, id, patch); err != nil {
		return repoErr(c, err, "update user")
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "load user")
	}
	return c.JSON(http.StatusOK, newUserResp(u))
}

// Delete removes a user together with their bookings, payments and
// tickets (admin).
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		return repoErr(c, err, "delete user")
	}
	return c.NoContent(http.StatusNoContent)
}
