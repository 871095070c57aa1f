package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

// getOnly rejects anything but GET.
func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

type AboutResponse struct {
	Service   string `json:"service"`
	GoVersion string `json:"go_version"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
}

func about() AboutResponse {
	resp := AboutResponse{Service: "sonar-ng", GoVersion: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return resp
	}
	resp.Version = bi.Main.Version
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			resp.Commit = s.Value
		case "vcs.modified":
			resp.Dirty = s.Value == "true"
		}
	}
	return resp
}

func Handler(status *Status, logs *LogBuffer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status.Snapshot(time.Now().UTC()))
	}))

	mux.HandleFunc("/api/about", getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, about())
	}))

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	// Plain page mirroring the OLED for quick checks from a browser.
	mux.HandleFunc("/", getOnly(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		lines := make([]string, 0, len(snap.Frame))
		for _, l := range snap.Frame {
			lines = append(lines, html.EscapeString(l.Text))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><meta http-equiv=\"refresh\" content=\"1\"><title>sonar-ng</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>sonar-ng</h1><pre>%s</pre>", strings.Join(lines, "\n"))
		_, _ = fmt.Fprintf(w, "<p>frames=%d uptime=%ds <a href=\"/api/status\">status</a> <a href=\"/api/logs?format=text\">logs</a></p>", snap.FramesPresented, snap.UptimeSec)
		_, _ = fmt.Fprintf(w, "</body></html>")
	}))

	return mux
}

// Serve runs the HTTP API until ctx is cancelled.
func Serve(ctx context.Context, listenAddr string, status *Status, logs *LogBuffer) error {
	if status == nil {
		status = NewStatus(nil)
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, logs),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
