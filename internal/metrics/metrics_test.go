package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCollectors(t *testing.T) {
	DirectoryRequests.WithLabelValues("de1.api.radio-browser.info", "ok").Inc()
	BlacklistAdditions.Inc()
	SetState("playing", []string{"idle", "playing"})

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		"moodradio_directory_requests_total",
		"moodradio_blacklist_additions_total",
		`moodradio_controller_state{state="playing"} 1`,
		`moodradio_controller_state{state="idle"} 0`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
