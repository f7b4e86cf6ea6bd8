package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RealtimeTestSuite struct {
	BaseSuite
	server *httptest.Server
}

func TestRealtimeSuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, new(RealtimeTestSuite))
}

func (s *RealtimeTestSuite) SetupTest() {
	s.BaseSuite.SetupTest()
	s.server = httptest.NewServer(s.app.App.Routes())
}

func (s *RealtimeTestSuite) TearDownTest() {
	s.server.Close()
}

type wsPeer struct {
	t    testing.TB
	conn *websocket.Conn
}

type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t testing.TB, server *httptest.Server, cookies []*http.Cookie) *wsPeer {
	t.Helper()

	header := http.Header{}
	for _, c := range cookies {
		header.Add("Cookie", c.String())
	}

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/showtimes/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	return &wsPeer{t: t, conn: conn}
}

func (p *wsPeer) send(msgType string, data any) {
	p.t.Helper()

	err := p.conn.WriteJSON(map[string]any{"type": msgType, "data": data})
	require.NoError(p.t, err)
}

// expect reads frames until one of msgType arrives and decodes its data into dst.
func (p *wsPeer) expect(msgType string, dst any) {
	p.t.Helper()

	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	for {
		var frame wsFrame
		require.NoError(p.t, p.conn.ReadJSON(&frame), "waiting for %s", msgType)

		if frame.Type != msgType {
			continue
		}

		if dst != nil {
			require.NoError(p.t, json.Unmarshal(frame.Data, dst))
		}

		return
	}
}

func (p *wsPeer) join(showtimeID int) {
	p.t.Helper()

	p.send("JoinShowtime", map[string]int{"movieShowId": showtimeID})
	p.expect("HeldSeats", nil)
}

func (p *wsPeer) selectSeat(seatID int) {
	p.send("SelectSeat", map[string]int{"movieShowId": TestShowtimeId, "seatId": seatID})
}

type seatsPayload struct {
	SeatIDs []int `json:"seatIds"`
}

type seatPayload struct {
	SeatID int `json:"seatId"`
}

func (s *RealtimeTestSuite) TestRejectsConnectionsWithoutSession() {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/showtimes/ws"

	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().Error(err)
	s.Require().NotNil(res)
	s.Equal(http.StatusUnauthorized, res.StatusCode)
}

func (s *RealtimeTestSuite) TestSeatSelectionIsBroadcast() {
	alice := dial(s.T(), s.server, s.guestSession())
	bob := dial(s.T(), s.server, s.guestSession())

	alice.join(TestShowtimeId)
	bob.join(TestShowtimeId)

	// seat 5 is paired with seat 6
	alice.selectSeat(5)

	var accepted seatsPayload
	alice.expect("HoldAccepted", &accepted)
	s.Equal([]int{5, 6}, accepted.SeatIDs)

	var selected seatPayload
	bob.expect("SeatSelected", &selected)
	s.Contains([]int{5, 6}, selected.SeatID)

	bob.selectSeat(6)

	var rejected struct {
		SeatID int    `json:"seatId"`
		Reason string `json:"reason"`
	}
	bob.expect("HoldRejected", &rejected)
	s.Equal(6, rejected.SeatID)
	s.Equal("seat is already held by another customer", rejected.Reason)

	alice.send("DeselectSeat", map[string]int{"movieShowId": TestShowtimeId, "seatId": 5})

	var deselected seatPayload
	bob.expect("SeatDeselected", &deselected)
	s.Contains([]int{5, 6}, deselected.SeatID)

	s.Eventually(func() bool {
		return s.app.App.Seats().Registry().Size() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *RealtimeTestSuite) TestDisconnectReleasesSeats() {
	alice := dial(s.T(), s.server, s.guestSession())
	bob := dial(s.T(), s.server, s.guestSession())

	alice.join(TestShowtimeId)
	bob.join(TestShowtimeId)

	alice.selectSeat(1)
	alice.expect("HoldAccepted", nil)

	s.Require().NoError(alice.conn.Close())

	var released seatsPayload
	bob.expect("SeatsReleased", &released)
	s.Equal([]int{1}, released.SeatIDs)
}

func (s *RealtimeTestSuite) TestBookedSeatsCannotBeSelected() {
	bookSeats(s.T(), s.app.DB, "INV-SEEDED000002", 2)

	alice := dial(s.T(), s.server, s.guestSession())
	alice.join(TestShowtimeId)

	alice.selectSeat(2)

	var rejected struct {
		Reason string `json:"reason"`
	}
	alice.expect("HoldRejected", &rejected)
	s.Equal("seat is already booked", rejected.Reason)
}
