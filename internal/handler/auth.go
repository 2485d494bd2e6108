package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

// AccountMailer sends the account emails.  Calls happen off the request
// goroutine.
type AccountMailer interface {
	Welcome(u model.User) error
	PasswordReset(u model.User, token string, validMinutes int) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Mail   AccountMailer
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, mail AccountMailer) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Mail: mail}
}

// ----- DTOs -----

type registerReq struct {
	FirstName    string  `json:"first_name" validate:"required,max=100"`
	LastName     string  `json:"last_name" validate:"required,max=100"`
	Email        string  `json:"email" validate:"required,email,max=255"`
	Password     string  `json:"password" validate:"required,min=8,max=72"`
	ContactPhone *string `json:"contact_phone" validate:"omitempty,max=20"`
	Address      *string `json:"address" validate:"omitempty,max=255"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type resetRequestReq struct {
	Email string `json:"email" validate:"required,email"`
}
type resetReq struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    userResp  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register creates a user with the user role and returns tokens
// immediately.  The welcome email is sent in the background.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	var u model.User
	_ = copier.Copy(&u, &req)
	u.Role = model.RoleUser

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Users.Create(ctx, &u, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return errJSON(c, http.StatusConflict, "email already exists")
		}
		log.Errorf("register: %v", err)
		return errJSON(c, http.StatusInternalServerError, "create user failed")
	}
	if h.Mail != nil {
		go func(u model.User) {
			if err := h.Mail.Welcome(u); err != nil {
				log.Warnf("welcome email for user %d: %v", u.ID, err)
			}
		}(u)
	}
	return h.issue(c, http.StatusCreated, u)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errJSON(c, http.StatusUnauthorized, "invalid credentials")
		}
		log.Errorf("login: %v", err)
		return errJSON(c, http.StatusInternalServerError, "query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return errJSON(c, http.StatusUnauthorized, "invalid credentials")
	}
	if utils.NeedsRehash(u.PasswordHash, h.Cfg.BcryptCost) {
		if err := h.Users.SetPassword(ctx, u.ID, req.Password, h.Cfg.BcryptCost); err != nil {
			log.Warnf("rehash password for user %d: %v", u.ID, err)
		}
	}
	return h.issue(c, http.StatusOK, u)
}

// Refresh spends a refresh token and answers with a fresh pair.  The old
// token is revoked in the same transaction that stores its successor.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return errJSON(c, http.StatusBadRequest, "refresh_token required")
	}
	next, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "issue refresh failed")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, err := h.Tokens.Rotate(ctx,
		utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)),
		utils.HashRefreshRaw(next.Raw), next.Exp)
	if errors.Is(err, repository.ErrTokenInvalid) {
		return errJSON(c, http.StatusUnauthorized, "invalid refresh")
	}
	if err != nil {
		log.Errorf("rotate refresh token: %v", err)
		return errJSON(c, http.StatusInternalServerError, "refresh failed")
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errJSON(c, http.StatusUnauthorized, "invalid refresh")
		}
		return errJSON(c, http.StatusInternalServerError, "load user failed")
	}
	return h.respond(c, http.StatusOK, u, next)
}

// issue opens a new session for u.
func (h *AuthHandler) issue(c echo.Context, status int, u model.User) error {
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "issue refresh failed")
	}
	if err := h.Tokens.Issue(c.Request().Context(), u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		log.Errorf("store refresh token: %v", err)
		return errJSON(c, http.StatusInternalServerError, "save refresh failed")
	}
	return h.respond(c, status, u, refresh)
}

func (h *AuthHandler) respond(c echo.Context, status int, u model.User, refresh utils.RefreshToken) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "issue access failed")
	}
	return c.JSON(status, authResp{
		User:    newUserResp(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Logout revokes the refresh token in the body, or every refresh token of
// the bearer's user when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if refreshToken != "" {
		revoked, err := h.Tokens.Revoke(ctx, utils.HashRefreshRaw(refreshToken))
		if err != nil {
			return errJSON(c, http.StatusInternalServerError, "logout failed")
		}
		if !revoked {
			return errJSON(c, http.StatusUnauthorized, "invalid refresh token")
		}
		return c.NoContent(http.StatusNoContent)
	}

	uid, ok := h.bearerUser(c)
	if !ok {
		return errJSON(c, http.StatusBadRequest, "provide Authorization header or refresh_token")
	}
	if err := h.Tokens.RevokeUser(ctx, uid); err != nil {
		return errJSON(c, http.StatusInternalServerError, "logout failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// bearerUser reads the user id from an optional Authorization header.
// Logout is reachable without the JWT middleware, so the token is parsed
// here.
func (h *AuthHandler) bearerUser(c echo.Context) (uint64, bool) {
	raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !ok {
		return 0, false
	}
	uid, _, err := utils.ParseAccessToken(h.Cfg.JWTSecret, raw)
	return uid, err == nil
}

// RequestPasswordReset mails a reset link when the email belongs to a
// user.  The response is the same either way.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req resetRequestReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	resp := echo.Map{"message": "if the email is registered, a reset link has been sent"}
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusOK, resp)
	}
	if err != nil {
		log.Errorf("password reset lookup: %v", err)
		return errJSON(c, http.StatusInternalServerError, "query failed")
	}
	tok, err := utils.NewResetToken(h.Cfg.JWTSecret, u.ID, u.PasswordHash, h.Cfg.ResetTTLMin)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "issue reset token failed")
	}
	if h.Mail != nil {
		go func() {
			if err := h.Mail.PasswordReset(u, tok.Token, h.Cfg.ResetTTLMin); err != nil {
				log.Warnf("password reset email for user %d: %v", u.ID, err)
			}
		}()
	}
	return c.JSON(http.StatusOK, resp)
}

// ResetPassword sets a new password from a reset link and signs the user
// out everywhere.  A link stops working once the password has changed.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	uid, fp, err := utils.ParseResetToken(h.Cfg.JWTSecret, c.Param("token"))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid or expired reset token")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errJSON(c, http.StatusBadRequest, "invalid or expired reset token")
		}
		return errJSON(c, http.StatusInternalServerError, "load user failed")
	}
	if utils.PasswordFingerprint(u.PasswordHash) != fp {
		return errJSON(c, http.StatusBadRequest, "invalid or expired reset token")
	}
	if err := h.Users.SetPassword(ctx, uid, req.Password, h.Cfg.BcryptCost); err != nil {
		return repoErr(c, err, "reset password")
	}
	if err := h.Tokens.RevokeUser(ctx, uid); err != nil {
		log.Warnf("revoke sessions after password reset for user %d: %v", uid, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return errJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return repoErr(c, err, "load user")
	}
	return c.JSON(http.StatusOK, newUserResp(u))
}
