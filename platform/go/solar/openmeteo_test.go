package solar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenMeteoClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenMeteoClient(OpenMeteoConfig{BaseURL: srv.URL, Timeout: time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestOpenMeteoFetchParsesWindow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/forecast", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "sunrise,sunset", q.Get("daily"))
		require.Equal(t, "GMT", q.Get("timezone"))
		require.Equal(t, "2026-03-02", q.Get("start_date"))
		require.Equal(t, "2026-03-03", q.Get("end_date"))
		require.Equal(t, "-33.8688", q.Get("latitude"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"daily":{"time":["2026-03-02","2026-03-03"],
			"sunrise":["2026-03-01T19:52","2026-03-02T19:53"],
			"sunset":["2026-03-02T08:38","2026-03-03T08:37:00Z"]}}`))
	})

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	window, err := c.Fetch(context.Background(), -33.8688, 151.2093, start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Equal(t, 2, window.Len())

	day, ok := window.Lookup("2026-03-02")
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 3, 1, 19, 52, 0, 0, time.UTC), day.Sunrise)

	next, ok := window.Lookup("2026-03-03")
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 3, 3, 8, 37, 0, 0, time.UTC), next.Sunset)
}

func TestOpenMeteoFetchUsesStartDateZone(t *testing.T) {
	sydney, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Australia/Sydney", r.URL.Query().Get("timezone"))
		require.Equal(t, "2026-03-02", r.URL.Query().Get("start_date"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"daily":{"time":["2026-03-02"],"sunrise":["2026-03-02T06:52"],"sunset":["2026-03-02T19:38"]}}`))
	})

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, sydney)
	window, err := c.Fetch(context.Background(), -33.8688, 151.2093, start, start)
	require.NoError(t, err)

	day, ok := window.Lookup("2026-03-02")
	require.True(t, ok)
	// AEDT is UTC+11.
	require.Equal(t, time.Date(2026, 3, 1, 19, 52, 0, 0, time.UTC), day.Sunrise)
	require.Equal(t, time.UTC, day.Sunset.Location())
}

func TestOpenMeteoFetchFailsClosed(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"server error":       {status: http.StatusBadGateway, body: `{}`},
		"malformed json":     {status: http.StatusOK, body: `{"daily":`},
		"missing daily":      {status: http.StatusOK, body: `{"latitude":1}`},
		"empty arrays":       {status: http.StatusOK, body: `{"daily":{"time":[],"sunrise":[],"sunset":[]}}`},
		"length mismatch":    {status: http.StatusOK, body: `{"daily":{"time":["2026-03-02","2026-03-03"],"sunrise":["2026-03-02T06:00"],"sunset":["2026-03-02T18:00","2026-03-03T18:00"]}}`},
		"garbled instant":    {status: http.StatusOK, body: `{"daily":{"time":["2026-03-02"],"sunrise":["2026-03-02Tsixish"],"sunset":["2026-03-02T18:00"]}}`},
		"wrong type":         {status: http.StatusOK, body: `{"daily":{"time":"2026-03-02","sunrise":[],"sunset":[]}}`},
		"dates out of order": {status: http.StatusOK, body: `{"daily":{"time":["2026-03-03","2026-03-02"],"sunrise":["2026-03-03T06:00","2026-03-02T06:00"],"sunset":["2026-03-03T18:00","2026-03-02T18:00"]}}`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
			_, err := c.Fetch(context.Background(), 0, 0, start, start.AddDate(0, 0, 13))
			require.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestOpenMeteoFetchHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := NewOpenMeteoClient(OpenMeteoConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), 0, 0, time.Now(), time.Now())
	require.ErrorIs(t, err, ErrUnavailable)
}
