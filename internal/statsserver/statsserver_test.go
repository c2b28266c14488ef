package statsserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/halvardh/streamview/internal/gputex"
	"github.com/halvardh/streamview/internal/pyramid"
	"github.com/halvardh/streamview/internal/streamer"
)

type nopDecoder struct{}

func (nopDecoder) Decode(string) []pyramid.Level { return nil }

func newTestController(t *testing.T) *streamer.Controller {
	t.Helper()
	ctl := streamer.New(streamer.Config{CacheMemoryBudget: 1 << 20, WorkerCount: 2}, nopDecoder{}, gputex.NewMemoryUploader())
	t.Cleanup(ctl.Close)
	return ctl
}

func TestStatsRejectsMissingToken(t *testing.T) {
	ctl := newTestController(t)
	s := New(ctl, []byte("secret"), WithPlaintextToken("opstoken"))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestStatsRejectsWrongToken(t *testing.T) {
	ctl := newTestController(t)
	s := New(ctl, []byte("secret"), WithPlaintextToken("opstoken"))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestStatsAcceptsMintedToken(t *testing.T) {
	ctl := newTestController(t)
	s := New(ctl, []byte("secret"), WithPlaintextToken("opstoken"))

	token, err := s.MintToken("opstoken", time.Minute)
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var body statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.CacheMemoryBudget != 1<<20 {
		t.Fatalf("CacheMemoryBudget = %d, want %d", body.CacheMemoryBudget, 1<<20)
	}
}

func TestMintTokenRejectsWrongPlaintext(t *testing.T) {
	ctl := newTestController(t)
	s := New(ctl, []byte("secret"), WithPlaintextToken("opstoken"))

	if _, err := s.MintToken("wrong", time.Minute); err == nil {
		t.Fatal("expected MintToken to reject a wrong plaintext token")
	}
}
