package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/metinatakli/cinema-booking/internal/domain"
)

type sessionKey string

const (
	SessionKeyUserId = sessionKey("userID")
	SessionKeyGuest  = sessionKey("guest")
)

func (s sessionKey) String() string {
	return string(s)
}

func (app *Application) contextGetUserId(r *http.Request) int {
	userId, ok := r.Context().Value(SessionKeyUserId).(int)
	if !ok {
		panic("missing user id from context")
	}

	return userId
}

// holderID identifies who owns seat holds for the session in ctx: the account
// for logged in users, otherwise the guest session.
func (app *Application) holderID(ctx context.Context) string {
	userId := app.sessionManager.GetInt(ctx, SessionKeyUserId.String())
	if userId != 0 {
		return domain.UserHolderID(userId)
	}

	return guestHolderID(app.sessionManager.Token(ctx))
}

// guestHolderID keeps the session token itself out of logs and metrics.
func guestHolderID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "guest:" + hex.EncodeToString(sum[:12])
}
