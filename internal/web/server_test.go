package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sonar-ng/internal/display"
)

func TestAPIStatus_ReportsLastFrame(t *testing.T) {
	rec := display.NewRecorder()
	rec.Clear()
	rec.DrawText(0, 0, 1, "Dist: 9.98 cm")
	rec.DrawText(0, 10, 1, "")
	_ = rec.Present()

	st := NewStatus(rec)
	st.SetPipeline(map[string]any{"pulse_queue": 32})

	ts := httptest.NewServer(Handler(st, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}

	var snap StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if snap.Service != "sonar-ng" {
		t.Fatalf("service=%q", snap.Service)
	}
	if snap.FramesPresented != 1 || len(snap.Frame) != 2 || snap.Frame[0].Text != "Dist: 9.98 cm" {
		t.Fatalf("snap=%+v", snap)
	}
	if v, ok := snap.Pipeline["pulse_queue"].(float64); !ok || v != 32 {
		t.Fatalf("pipeline=%v", snap.Pipeline)
	}
}

func TestAPIStatus_NoFramesYet(t *testing.T) {
	snap := NewStatus(display.NewRecorder()).Snapshot(timeZero)
	if snap.Frame == nil || len(snap.Frame) != 0 || snap.FramesPresented != 0 {
		t.Fatalf("snap=%+v", snap)
	}
	if NewStatus(nil).Snapshot(timeZero).Frame == nil {
		t.Fatalf("nil frame source should still give an empty frame")
	}
}

func TestAPIStatus_RejectsPost(t *testing.T) {
	ts := httptest.NewServer(Handler(NewStatus(nil), nil))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/status", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if resp.Header.Get("Allow") != http.MethodGet {
		t.Fatalf("allow=%q", resp.Header.Get("Allow"))
	}
}

func TestRootPage_MirrorsDisplay(t *testing.T) {
	rec := display.NewRecorder()
	rec.DrawText(0, 0, 1, "Erro na leitura")
	_ = rec.Present()

	ts := httptest.NewServer(Handler(NewStatus(rec), nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get root: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Erro na leitura") {
		t.Fatalf("body missing frame text: %s", body)
	}

	resp2, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("get unknown: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", resp2.StatusCode)
	}
}

func TestAPIAbout(t *testing.T) {
	ts := httptest.NewServer(Handler(NewStatus(nil), nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/about")
	if err != nil {
		t.Fatalf("get about: %v", err)
	}
	defer resp.Body.Close()
	var a AboutResponse
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Service != "sonar-ng" || a.GoVersion == "" {
		t.Fatalf("about=%+v", a)
	}
}
