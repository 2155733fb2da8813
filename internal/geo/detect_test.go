package geo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

func newTestDetector(h http.HandlerFunc) (*Detector, func()) {
	server := httptest.NewServer(h)
	d := NewDetector()
	d.URL = server.URL
	return d, server.Close
}

func londonHandler(hits *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ipAPIResponse{
			Status:   "success",
			Lat:      51.5074,
			Lon:      -0.1278,
			City:     "London",
			Country:  "United Kingdom",
			Timezone: "Europe/London",
		})
	}
}

func TestDetect_Success(t *testing.T) {
	d, done := newTestDetector(londonHandler(nil))
	defer done()

	loc, err := d.Detect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Latitude != 51.5074 {
		t.Errorf("Latitude = %v, want %v", loc.Latitude, 51.5074)
	}
	if loc.Longitude != -0.1278 {
		t.Errorf("Longitude = %v, want %v", loc.Longitude, -0.1278)
	}
	if loc.City != "London" {
		t.Errorf("City = %q, want %q", loc.City, "London")
	}
	if loc.Timezone != "Europe/London" {
		t.Errorf("Timezone = %q, want %q", loc.Timezone, "Europe/London")
	}
	if c := loc.Coordinates(); c.Latitude != 51.5074 || c.Longitude != -0.1278 {
		t.Errorf("Coordinates() = %+v", c)
	}
}

func TestDetect_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			"api failure status",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(ipAPIResponse{Status: "fail", Message: "reserved range"})
			},
			"reserved range",
		},
		{
			"http error",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "internal error", http.StatusInternalServerError)
			},
			"500",
		},
		{
			"invalid json",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json at all"))
			},
			"decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, done := newTestDetector(tt.handler)
			defer done()

			_, err := d.Detect(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestDetect_ConnectionRefused(t *testing.T) {
	d := NewDetector()
	d.URL = "http://127.0.0.1:1" // nothing listening

	if _, err := d.Detect(context.Background()); err == nil {
		t.Fatal("expected error for connection refused, got nil")
	}
}

// ---------------------------------------------------------------------------
// Locator
// ---------------------------------------------------------------------------

type memGeoStore struct {
	loc   *Location
	saves int
}

func (m *memGeoStore) LoadGeo() *Location { return m.loc }
func (m *memGeoStore) SaveGeo(loc *Location) error {
	m.saves++
	m.loc = loc
	return nil
}

func TestLocate_ExplicitWins(t *testing.T) {
	var hits atomic.Int32
	d, done := newTestDetector(londonHandler(&hits))
	defer done()

	l := &Locator{Detector: d, Store: &memGeoStore{loc: &Location{Latitude: 1}}, Log: zerolog.Nop()}
	loc, err := l.Locate(context.Background(), &prayer.Coordinates{Latitude: 21.4225, Longitude: 39.8262})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Latitude != 21.4225 || loc.Longitude != 39.8262 {
		t.Errorf("Locate = %+v, want explicit coordinates", loc)
	}
	if hits.Load() != 0 {
		t.Error("explicit coordinates must not trigger detection")
	}
}

func TestLocate_CachedThenDetected(t *testing.T) {
	var hits atomic.Int32
	d, done := newTestDetector(londonHandler(&hits))
	defer done()

	store := &memGeoStore{}
	l := &Locator{Detector: d, Store: store, Log: zerolog.Nop()}

	for i := 0; i < 3; i++ {
		loc, err := l.Locate(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loc.City != "London" {
			t.Errorf("City = %q", loc.City)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("detector hit %d times, want 1", hits.Load())
	}
	if store.saves != 1 {
		t.Errorf("store saves = %d, want 1", store.saves)
	}
}

func TestLocate_DetectionFails(t *testing.T) {
	d := NewDetector()
	d.URL = "http://127.0.0.1:1"
	l := &Locator{Detector: d, Log: zerolog.Nop()}

	_, err := l.Locate(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "auto-detection failed") {
		t.Fatalf("Locate error = %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Error("expected wrapped cause")
	}
}
