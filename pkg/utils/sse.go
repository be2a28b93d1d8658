package utils

import (
	"fmt"
	"net/http"
	"strings"
)

// SetupSSEHeaders prepares the response for Server-Sent Events delivery.
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// SendSSEFragment writes one reply fragment as a single SSE event. Embedded
// newlines become additional data: lines so EventSource reassembles the
// fragment intact.
func SendSSEFragment(w http.ResponseWriter, flusher http.Flusher, fragment string) error {
	for _, line := range strings.Split(fragment, "\n") {
		if _, err := fmt.Fprintf(w, "data:%s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// SendSSEDone writes the terminal end-of-stream event.
func SendSSEDone(w http.ResponseWriter, flusher http.Flusher) {
	fmt.Fprint(w, "data:[DONE]\n\n")
	flusher.Flush()
}
