package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripledger/bookings/internal/extractor"
)

const tripsPage = `<html><body>
<div data-testid="reservation-card">
  <h3>Hotel Lumière</h3>
  <p data-testid="address">12 Rue de Rivoli, Paris, France</p>
  <span>Check-in: 12 Jan 2024</span>
  <span>Check-out: 15 Jan 2024</span>
  <span>Total: € 450,00</span>
</div>
<div data-testid="reservation-card">
  <h3>Casa Azul</h3>
  <p data-testid="address">Calle Mayor 5, Madrid, Spain</p>
  <span>Check-in: 3 Jun 2023</span>
  <span>Check-out: 6 Jun 2023</span>
  <span>Total: € 310.50</span>
</div>
</body></html>`

func doJSON(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()

	app := NewApp(extractor.New(extractor.DefaultProbeTimeout))

	var payload io.Reader
	switch b := body.(type) {
	case string:
		payload = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		payload = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(http.MethodPost, path, payload)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealth(t *testing.T) {
	app := NewApp(extractor.New(extractor.DefaultProbeTimeout))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestExtract_Heuristic(t *testing.T) {
	resp, data := doJSON(t, "/api/extract", ExtractRequest{HTML: tripsPage})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var out struct {
		Raw      int `json:"raw"`
		Bookings []struct {
			HotelName string `json:"hotel_name"`
			City      string `json:"city"`
			Country   string `json:"country"`
			StartDate string `json:"start_date"`
		} `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, 2, out.Raw)
	require.Len(t, out.Bookings, 2)
	assert.Equal(t, "Hotel Lumière", out.Bookings[0].HotelName)
	assert.Equal(t, "Paris", out.Bookings[0].City)
	assert.Equal(t, "France", out.Bookings[0].Country)
	assert.Equal(t, "2024-01-12", out.Bookings[0].StartDate)
}

func TestExtract_DateFilter(t *testing.T) {
	resp, data := doJSON(t, "/api/extract", ExtractRequest{HTML: tripsPage, From: "2024-01-01"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var out ExtractResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 2, out.Raw)
	require.Len(t, out.Bookings, 1)
	assert.Equal(t, "Hotel Lumière", out.Bookings[0].HotelName)
}

func TestExtract_CSV(t *testing.T) {
	resp, data := doJSON(t, "/api/extract.csv", ExtractRequest{HTML: tripsPage, Mode: ModeHeuristic})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "City,Country,Hotel name,"))
	assert.Contains(t, lines[1], "Hotel Lumière")
	assert.Contains(t, lines[2], "Casa Azul")
}

func TestExtract_BadRequests(t *testing.T) {
	testCases := []struct {
		name    string
		body    any
		wantErr string
	}{
		{name: "malformed json", body: "{not json", wantErr: "invalid request body"},
		{name: "empty html", body: ExtractRequest{}, wantErr: "html is required"},
		{name: "bad from", body: ExtractRequest{HTML: tripsPage, From: "12/01/2024"}, wantErr: "invalid from date"},
		{name: "bad to", body: ExtractRequest{HTML: tripsPage, To: "soon"}, wantErr: "invalid to date"},
		{name: "unknown mode", body: ExtractRequest{HTML: tripsPage, Mode: "magic"}, wantErr: "unknown mode"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, data := doJSON(t, "/api/extract", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.Unmarshal(data, &body))
			assert.Contains(t, body["error"], tc.wantErr)
		})
	}
}
