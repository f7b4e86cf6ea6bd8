package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	appvalidator "github.com/metinatakli/cinema-booking/internal/validator"
)

// Handler receives the client requests decoded from a connection.
type Handler interface {
	Connect(c Client) error
	Join(ctx context.Context, c Client, showtimeID int) error
	Select(ctx context.Context, c Client, showtimeID, seatID int) error
	Deselect(ctx context.Context, c Client, showtimeID, seatID int) error
	Disconnect(c Client)
}

// Serve runs the connection until the peer goes away or the client is closed.
func Serve(ctx context.Context, c *WSClient, h Handler, v *validator.Validate) {
	go c.writePump()

	err := h.Connect(c)
	if err != nil {
		c.logger.Warn("connection refused", "error", err)
		c.Close()
		return
	}

	defer func() {
		h.Disconnect(c)
		c.Close()
	}()

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
		// unblock ReadMessage once the client has been closed
		c.conn.SetReadDeadline(time.Now())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		err = dispatch(ctx, c, h, v, data)
		if err != nil {
			var reqErr *requestError
			if errors.As(err, &reqErr) {
				c.Send(Error(reqErr.Error()))
				continue
			}

			c.logger.Error("failed to handle realtime message", "error", err)
			c.Send(Error("The server encountered a problem and could not process your request"))
		}
	}
}

type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func dispatch(ctx context.Context, c Client, h Handler, v *validator.Validate, data []byte) error {
	var env envelope

	err := json.Unmarshal(data, &env)
	if err != nil {
		return &requestError{msg: "malformed message"}
	}

	switch env.Type {
	case TypeJoinShowtime:
		var req JoinShowtimeRequest
		if err := decode(v, env.Data, &req); err != nil {
			return err
		}

		return h.Join(ctx, c, req.MovieShowID)

	case TypeSelectSeat, TypeDeselectSeat:
		var req SeatRequest
		if err := decode(v, env.Data, &req); err != nil {
			return err
		}

		if env.Type == TypeSelectSeat {
			return h.Select(ctx, c, req.MovieShowID, req.SeatID)
		}

		return h.Deselect(ctx, c, req.MovieShowID, req.SeatID)

	default:
		return &requestError{msg: fmt.Sprintf("unknown message type %q", env.Type)}
	}
}

func decode(v *validator.Validate, data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return &requestError{msg: "message data is required"}
	}

	err := json.Unmarshal(data, dst)
	if err != nil {
		return &requestError{msg: "malformed message data"}
	}

	err = v.Struct(dst)
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			fieldErr := validationErrs[0]
			return &requestError{msg: fmt.Sprintf("%s %s", fieldErr.Field(), appvalidator.ValidationMessage(fieldErr))}
		}

		return &requestError{msg: err.Error()}
	}

	return nil
}
