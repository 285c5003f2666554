package server

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultStreamInterval paces the preview stream at about 15 frames per second.
const DefaultStreamInterval = 66 * time.Millisecond

// PreviewSource supplies the latest camera frame as JPEG.
type PreviewSource interface {
	Preview() ([]byte, bool)
}

// StreamHandler serves the preview as MJPEG.
type StreamHandler struct {
	source   PreviewSource
	interval time.Duration
}

// NewStreamHandler returns a handler streaming source. A non-positive
// interval uses DefaultStreamInterval.
func NewStreamHandler(source PreviewSource, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &StreamHandler{source: source, interval: interval}
}

// ServeHTTP streams frames until the client disconnects. A frame is only
// written when it differs from the last one sent.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last []byte
	for {
		if jpeg, ok := h.source.Preview(); ok && !sameFrame(jpeg, last) {
			last = jpeg
			fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg))
			if _, err := w.Write(jpeg); err != nil {
				return
			}
			fmt.Fprint(w, "\r\n")
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// sameFrame reports whether a and b are the same preview buffer. Previews
// are replaced, never modified, so identity is enough.
func sameFrame(a, b []byte) bool {
	return len(a) > 0 && len(a) == len(b) && &a[0] == &b[0]
}
