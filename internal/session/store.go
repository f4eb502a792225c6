// Package session caches the last computed table per browser session so it
// can be downloaded without recomputing.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/trogers1052/adx-service/internal/models"
)

// CookieName carries the session id between upload and download
const CookieName = "adx_session"

// ErrNotFound is returned when no table is cached for a session
var ErrNotFound = errors.New("no cached result for session")

// Store caches table snapshots keyed by session id
type Store interface {
	Save(ctx context.Context, id string, snap *models.TableSnapshot) error
	Load(ctx context.Context, id string) (*models.TableSnapshot, error)
	Delete(ctx context.Context, id string) error
}

// NewID returns a fresh random session id
func NewID() string {
	return uuid.NewString()
}

// IDFromRequest returns the session id in the request cookie, if it is a valid uuid.
func IDFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

// EnsureID returns the request's session id, issuing a new cookie when there is none.
func EnsureID(w http.ResponseWriter, r *http.Request, ttl time.Duration) string {
	if id, ok := IDFromRequest(r); ok {
		return id
	}
	id := NewID()
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl / time.Second)
	}
	http.SetCookie(w, cookie)
	return id
}

func encode(snap *models.TableSnapshot) ([]byte, error) {
	if snap == nil {
		return nil, errors.New("nil snapshot")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*models.TableSnapshot, error) {
	var snap models.TableSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("cached snapshot is invalid: %w", err)
	}
	return &snap, nil
}
