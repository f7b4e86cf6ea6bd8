package app

import (
	"net/http"

	"github.com/metinatakli/cinema-booking/internal/realtime"
)

// ServeRealtime upgrades the request to a WebSocket carrying seat selection
// traffic. The caller must already have a session, which becomes the holder
// of every seat selected over the connection.
func (app *Application) ServeRealtime(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	cookie, err := r.Cookie(app.sessionManager.Cookie.Name)
	if err != nil {
		app.unauthorizedAccessResponse(w, r)
		return
	}

	ctx, err := app.sessionManager.Load(r.Context(), cookie.Value)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	// Load yields an empty token for unknown or expired sessions
	if app.sessionManager.Token(ctx) == "" {
		app.unauthorizedAccessResponse(w, r)
		return
	}

	holderID := app.holderID(ctx)

	conn, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered the request
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := realtime.NewWSClient(conn, holderID, app.logger)

	realtime.Serve(app.ctx, client, app.seats, app.validator)
}
