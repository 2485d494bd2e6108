package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// ErrTokenInvalid covers unknown, revoked and expired refresh tokens alike.
var ErrTokenInvalid = errors.New("refresh token invalid")

// TokenRepo stores refresh tokens by SHA-256 hash; the raw value only ever
// exists on the client.
type TokenRepo struct {
	DB    *sql.DB
	Clock clockwork.Clock
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{DB: db, Clock: clockwork.NewRealClock()}
}

const tokenColumns = "id, user_id, token_hash, expires_at, revoked_at, created_at"

func scanToken(row interface{ Scan(...any) error }) (model.RefreshToken, error) {
	var (
		t       model.RefreshToken
		revoked sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revoked, &t.CreatedAt); err != nil {
		return model.RefreshToken{}, err
	}
	if revoked.Valid {
		t.RevokedAt = &revoked.Time
	}
	return t, nil
}

func (r *TokenRepo) usable(t model.RefreshToken) bool {
	return t.RevokedAt == nil && r.Clock.Now().UTC().Before(t.ExpiresAt)
}

// Issue records a new refresh token for userID.
func (r *TokenRepo) Issue(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)",
		userID, hash, exp.UTC())
	return parentErr(err)
}

// Rotate spends the token under oldHash and stores newHash in its place
// for the same user.  The old row is locked for the duration, so two
// concurrent refreshes with one token cannot both succeed.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash, newHash string, exp time.Time) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	t, err := scanToken(tx.QueryRowContext(ctx,
		"SELECT "+tokenColumns+" FROM refresh_tokens WHERE token_hash = ? FOR UPDATE", oldHash))
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !r.usable(t)) {
		return 0, ErrTokenInvalid
	}
	if err != nil {
		return 0, fmt.Errorf("lock refresh token: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = ?", t.ID); err != nil {
		return 0, fmt.Errorf("revoke refresh token: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)",
		t.UserID, newHash, exp.UTC()); err != nil {
		return 0, fmt.Errorf("store refresh token: %w", err)
	}
	return t.UserID, tx.Commit()
}

// Revoke spends the token under hash.  It reports false when no live token
// matched.
func (r *TokenRepo) Revoke(ctx context.Context, hash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = NOW() WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?",
		hash, r.Clock.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RevokeUser ends every session of userID.  Used by logout without a token
// and after a password reset.
func (r *TokenRepo) RevokeUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = ? AND revoked_at IS NULL",
		userID)
	return err
}

// PurgeExpired deletes rows that expired, or were revoked, before cutoff.
func (r *TokenRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < ? OR revoked_at < ?",
		cutoff, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
