package testutil

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockHabboServer is a test server that mocks the public Habbo web API.
// Profiles are keyed by lower-cased name, like the real hotel lookup.
type MockHabboServer struct {
	*httptest.Server

	mu       sync.Mutex
	profiles map[string]map[string]interface{}
	raw      map[string]string
	lookups  map[string]int
}

// NewMockHabboServer creates a new mock Habbo server.
func NewMockHabboServer(t *testing.T) *MockHabboServer {
	t.Helper()
	m := &MockHabboServer{
		profiles: make(map[string]map[string]interface{}),
		raw:      make(map[string]string),
		lookups:  make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/public/users", m.handleUser)
	mux.HandleFunc("/habbo-imaging/avatarimage", m.handleAvatar)
	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Close)
	return m
}

// SetProfile registers a public profile with the given motto.
func (m *MockHabboServer) SetProfile(name, motto string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(name)
	delete(m.raw, key)
	m.profiles[key] = map[string]interface{}{
		"uniqueId":       "hhbr-" + key,
		"name":           name,
		"motto":          motto,
		"profileVisible": true,
	}
}

// SetRaw makes lookups of name answer with body verbatim (e.g. broken JSON).
func (m *MockHabboServer) SetRaw(name, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw[strings.ToLower(name)] = body
}

// Lookups returns how many times name was queried.
func (m *MockHabboServer) Lookups(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups[strings.ToLower(name)]
}

func (m *MockHabboServer) handleUser(w http.ResponseWriter, r *http.Request) {
	key := strings.ToLower(r.URL.Query().Get("name"))
	m.mu.Lock()
	m.lookups[key]++
	raw, hasRaw := m.raw[key]
	profile, ok := m.profiles[key]
	m.mu.Unlock()

	if hasRaw {
		_, _ = w.Write([]byte(raw)) //nolint:errcheck // test mock response
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not-found"}) //nolint:errcheck // test mock response
		return
	}
	_ = json.NewEncoder(w).Encode(profile) //nolint:errcheck // test mock response
}

func (m *MockHabboServer) handleAvatar(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(AvatarPNG()) //nolint:errcheck // test mock response
}

// AvatarPNG returns a small opaque PNG standing in for a Habbo avatar.
func AvatarPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 64, 110))
	for y := 0; y < 110; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img) //nolint:errcheck // in-memory encode
	return buf.Bytes()
}
