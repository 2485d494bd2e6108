package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

var userCols = []string{"id", "first_name", "last_name", "email", "password_hash", "contact_phone", "address", "profile_url", "role", "created_at", "updated_at"}

type mailCall struct {
	kind  string
	user  model.User
	token string
}

type chanMailer struct{ calls chan mailCall }

func (m chanMailer) Welcome(u model.User) error {
	m.calls <- mailCall{kind: "welcome", user: u}
	return nil
}

func (m chanMailer) PasswordReset(u model.User, token string, _ int) error {
	m.calls <- mailCall{kind: "reset", user: u, token: token}
	return nil
}

func (m chanMailer) next(t *testing.T) mailCall {
	t.Helper()
	select {
	case c := <-m.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no email sent")
		return mailCall{}
	}
}

func hashed(t *testing.T, pw string) string {
	t.Helper()
	h, err := utils.HashPassword(pw, bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func userRows(id uint64, email, hash, role string) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).
		AddRow(id, "Ada", "Lovelace", email, hash, nil, nil, nil, role, handlerNow, handlerNow)
}

func authServer(t *testing.T) (*echo.Echo, sqlmock.Sqlmock, chanMailer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, ResetTTLMin: 30, BcryptCost: bcrypt.MinCost}
	mail := chanMailer{calls: make(chan mailCall, 4)}
	tokens := repository.NewTokenRepo(db)
	tokens.Clock = clockwork.NewFakeClockAt(handlerNow)
	h := NewAuthHandler(cfg, repository.NewUserRepo(db), tokens, mail)

	e := newEcho()
	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)
	e.POST("/auth/refresh", h.Refresh)
	e.POST("/auth/logout", h.Logout)
	e.POST("/auth/password-reset", h.RequestPasswordReset)
	e.POST("/auth/password-reset/:token", h.ResetPassword)
	e.GET("/auth/me", h.Me, middleware.Authenticated(testSecret, middleware.TierAny)...)
	return e, mock, mail
}

func TestRegister(t *testing.T) {
	e, mock, mail := authServer(t)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("Ada", "Lovelace", "ada@example.com", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), model.RoleUser).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(9, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := serve(e, http.MethodPost, "/auth/register",
		`{"first_name":"Ada","last_name":"Lovelace","email":"Ada@Example.com","password":"s3cret-pass","role":"admin"}`, "")
	wantStatus(t, rec, http.StatusCreated)

	body := decode(t, rec)
	user := body["user"].(map[string]any)
	if user["id"] != float64(9) || user["role"] != model.RoleUser || user["email"] != "ada@example.com" {
		t.Fatalf("user = %v", user)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatal("password hash in response")
	}
	access := body["access"].(map[string]any)["token"].(string)
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(access, claims, func(*jwt.Token) (interface{}, error) { return []byte(testSecret), nil }); err != nil {
		t.Fatal(err)
	}
	if claims["sub"] != float64(9) || claims["role"] != model.RoleUser {
		t.Fatalf("claims = %v", claims)
	}
	if got := mail.next(t); got.kind != "welcome" || got.user.ID != 9 {
		t.Fatalf("mail = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterDuplicateAndValidation(t *testing.T) {
	e, mock, _ := authServer(t)

	wantStatus(t, serve(e, http.MethodPost, "/auth/register",
		`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","password":"short"}`, ""), http.StatusBadRequest)
	wantStatus(t, serve(e, http.MethodPost, "/auth/register",
		`{"first_name":"Ada","last_name":"Lovelace","email":"not-an-email","password":"s3cret-pass"}`, ""), http.StatusBadRequest)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ada@example.com' for key 'users.email'"})
	rec := serve(e, http.MethodPost, "/auth/register",
		`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","password":"s3cret-pass"}`, "")
	wantStatus(t, rec, http.StatusConflict)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLogin(t *testing.T) {
	e, mock, _ := authServer(t)
	hash := hashed(t, "s3cret-pass")

	mock.ExpectQuery("FROM users WHERE email=").WithArgs("ada@example.com").
		WillReturnRows(userRows(4, "ada@example.com", hash, model.RoleAdmin))
	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	rec := serve(e, http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"s3cret-pass"}`, "")
	wantStatus(t, rec, http.StatusOK)
	if got := decode(t, rec)["refresh"].(map[string]any)["token"]; got == "" {
		t.Fatal("empty refresh token")
	}

	mock.ExpectQuery("FROM users WHERE email=").WithArgs("ada@example.com").
		WillReturnRows(userRows(4, "ada@example.com", hash, model.RoleAdmin))
	rec = serve(e, http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"wrong-pass"}`, "")
	wantStatus(t, rec, http.StatusUnauthorized)

	mock.ExpectQuery("FROM users WHERE email=").WithArgs("nobody@example.com").WillReturnRows(sqlmock.NewRows(userCols))
	rec = serve(e, http.MethodPost, "/auth/login", `{"email":"nobody@example.com","password":"s3cret-pass"}`, "")
	wantStatus(t, rec, http.StatusUnauthorized)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLogoutRevokesEverySessionOfBearer(t *testing.T) {
	e, mock, _ := authServer(t)
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at = NOW\\(\\) WHERE user_id = ").
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 2))

	wantStatus(t, serve(e, http.MethodPost, "/auth/logout", "", bearer(t, 4, model.RoleUser)), http.StatusNoContent)
	wantStatus(t, serve(e, http.MethodPost, "/auth/logout", "", ""), http.StatusBadRequest)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	e, mock, mail := authServer(t)
	hash := hashed(t, "old-password")

	mock.ExpectQuery("FROM users WHERE email=").WithArgs("nobody@example.com").WillReturnRows(sqlmock.NewRows(userCols))
	rec := serve(e, http.MethodPost, "/auth/password-reset", `{"email":"nobody@example.com"}`, "")
	wantStatus(t, rec, http.StatusOK)
	unknown := decode(t, rec)["message"]

	mock.ExpectQuery("FROM users WHERE email=").WithArgs("ada@example.com").
		WillReturnRows(userRows(4, "ada@example.com", hash, model.RoleUser))
	rec = serve(e, http.MethodPost, "/auth/password-reset", `{"email":"ada@example.com"}`, "")
	wantStatus(t, rec, http.StatusOK)
	if decode(t, rec)["message"] != unknown {
		t.Fatal("response reveals whether the email is registered")
	}
	sent := mail.next(t)
	if sent.kind != "reset" || sent.token == "" {
		t.Fatalf("mail = %+v", sent)
	}

	mock.ExpectQuery("FROM users WHERE id=").WithArgs(4).
		WillReturnRows(userRows(4, "ada@example.com", hash, model.RoleUser))
	mock.ExpectExec(`UPDATE users SET password_hash = \? WHERE id = \?`).
		WithArgs(sqlmock.AnyArg(), 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at = NOW\\(\\) WHERE user_id = ").
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rec = serve(e, http.MethodPost, "/auth/password-reset/"+sent.token, `{"password":"new-password"}`, "")
	wantStatus(t, rec, http.StatusOK)

	// Once the hash has changed the same link no longer matches.
	mock.ExpectQuery("FROM users WHERE id=").WithArgs(4).
		WillReturnRows(userRows(4, "ada@example.com", hashed(t, "new-password"), model.RoleUser))
	rec = serve(e, http.MethodPost, "/auth/password-reset/"+sent.token, `{"password":"another-pass"}`, "")
	wantStatus(t, rec, http.StatusBadRequest)

	wantStatus(t, serve(e, http.MethodPost, "/auth/password-reset/garbage", `{"password":"another-pass"}`, ""), http.StatusBadRequest)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestResetTokenIsNotAnAccessToken(t *testing.T) {
	e, mock, _ := authServer(t)
	tok, err := utils.NewResetToken(testSecret, 4, hashed(t, "old-password"), 30)
	if err != nil {
		t.Fatal(err)
	}
	wantStatus(t, serve(e, http.MethodGet, "/auth/me", "", "Bearer "+tok.Token), http.StatusUnauthorized)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

var tokenCols = []string{"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"}

func TestRefreshRotatesToken(t *testing.T) {
	e, mock, _ := authServer(t)
	oldHash := utils.HashRefreshRaw("old-raw")

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash = \? FOR UPDATE`).WithArgs(oldHash).
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(11, 4, oldHash, handlerNow.Add(time.Hour), nil, handlerNow))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = NOW\(\) WHERE id = \?`).WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").WithArgs(4, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM users WHERE id=").WithArgs(4).
		WillReturnRows(userRows(4, "ada@example.com", "x", model.RoleUser))

	rec := serve(e, http.MethodPost, "/auth/refresh", `{"refresh_token":"old-raw"}`, "")
	wantStatus(t, rec, http.StatusOK)
	if got := decode(t, rec)["refresh"].(map[string]any)["token"]; got == "old-raw" || got == "" {
		t.Fatalf("refresh token not rotated: %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRefreshRejectsSpentToken(t *testing.T) {
	e, mock, _ := authServer(t)
	revoked := handlerNow.Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(11, 4, "h", handlerNow.Add(time.Hour), revoked, handlerNow))
	mock.ExpectRollback()
	wantStatus(t, serve(e, http.MethodPost, "/auth/refresh", `{"refresh_token":"spent"}`, ""), http.StatusUnauthorized)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(12, 4, "h", handlerNow.Add(-time.Second), nil, handlerNow))
	mock.ExpectRollback()
	wantStatus(t, serve(e, http.MethodPost, "/auth/refresh", `{"refresh_token":"expired"}`, ""), http.StatusUnauthorized)

	wantStatus(t, serve(e, http.MethodPost, "/auth/refresh", `{}`, ""), http.StatusBadRequest)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLogoutWithRefreshToken(t *testing.T) {
	e, mock, _ := authServer(t)
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = NOW\(\) WHERE token_hash = \?`).
		WithArgs(utils.HashRefreshRaw("live"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`WHERE token_hash = \?`).
		WithArgs(utils.HashRefreshRaw("gone"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	wantStatus(t, serve(e, http.MethodPost, "/auth/logout", `{"refresh_token":"live"}`, ""), http.StatusNoContent)
	wantStatus(t, serve(e, http.MethodPost, "/auth/logout", `{"refresh_token":"gone"}`, ""), http.StatusUnauthorized)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
