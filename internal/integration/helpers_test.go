package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/stretchr/testify/require"
)

var keysToIgnore = map[string]struct{}{
	"timestamp": {},
	"requestId": {},
	"createdAt": {},
	"expiresAt": {},
	"date":      {},
}

func prepareRequest(method, path string, body io.Reader, headers map[string]string, cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	return req
}

func compareResponse(t *testing.T, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	cleanMap(actual)

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore indetermistic fields while comparing
	opts := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		_, ok := keysToIgnore[k]
		return ok
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func cleanMap(m map[string]any) {
	for k := range m {
		if _, ok := keysToIgnore[k]; ok {
			delete(m, k)
			continue
		}
		if nested, ok := m[k].(map[string]any); ok {
			cleanMap(nested)
		}
	}
}

// resetDatabase empties every table and loads the showtime fixture.
func resetDatabase(t testing.TB, db *pgxpool.Pool) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		TRUNCATE TABLE invoice_foods, invoice_seats, invoices, payments, foods,
			showtimes, seats, halls, theaters, movies, users
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)

	seed, err := os.ReadFile("testdata/seed.sql")
	require.NoError(t, err)

	_, err = db.Exec(context.Background(), string(seed))
	require.NoError(t, err)

	insertUser(t, db, TestUserId, TestUserEmail, false)
	insertUser(t, db, TestStaffId, TestStaffEmail, true)
}

func insertUser(t testing.TB, db *pgxpool.Pool, id int, email string, isStaff bool) {
	t.Helper()

	var user domain.User
	require.NoError(t, user.Password.Set(TestUserPassword))

	_, err := db.Exec(context.Background(), `
		INSERT INTO users (id, first_name, last_name, email, password_hash, is_staff)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, "John", "Doe", email, user.Password.Hash, isStaff)
	require.NoError(t, err)
}

// bookSeats stores a paid invoice for seatIDs without going through checkout.
func bookSeats(t testing.TB, db *pgxpool.Pool, code string, seatIDs ...int) {
	t.Helper()

	var invoiceID int
	err := db.QueryRow(context.Background(), `
		INSERT INTO invoices (code, holder_id, user_id, showtime_id, seat_total, total_price)
		VALUES ($1, $2, $3, $4, 10, 10)
		RETURNING id
	`, code, domain.UserHolderID(TestStaffId), TestStaffId, TestShowtimeId).Scan(&invoiceID)
	require.NoError(t, err)

	for _, seatID := range seatIDs {
		_, err = db.Exec(context.Background(),
			`INSERT INTO invoice_seats (invoice_id, showtime_id, seat_id) VALUES ($1, $2, $3)`,
			invoiceID, TestShowtimeId, seatID)
		require.NoError(t, err)
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
