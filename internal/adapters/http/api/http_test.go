package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/bodytap/internal/adapters/http/api"
	"github.com/okian/bodytap/internal/engine"
	"github.com/okian/bodytap/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	stats    map[string]interface{}
	settings engine.Settings
}

func (m *mockDependencies) GetStats() map[string]interface{} {
	return m.stats
}

func (m *mockDependencies) Settings() engine.Settings {
	return m.settings
}

func newMux(play http.Handler) *http.ServeMux {
	deps := &mockDependencies{
		stats:    map[string]interface{}{"activeSessions": 2, "maxSessions": 64},
		settings: engine.DefaultSettings(),
	}
	mux := http.NewServeMux()
	api.NewServer(deps, play).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		played := false
		mux := newMux(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			played = true
			w.WriteHeader(http.StatusSwitchingProtocols)
		}))

		Convey("When scraping the health endpoint", func() {
			w := do(mux, http.MethodGet, "/healthz")

			Convey("Then prometheus metrics are served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "bodytap_game_")
			})
		})

		Convey("When reading stats", func() {
			w := do(mux, http.MethodGet, "/stats")

			Convey("Then the provider's stats are returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")

				var body map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["activeSessions"], ShouldEqual, 2.0)
			})
		})

		Convey("When reading the game config", func() {
			w := do(mux, http.MethodGet, "/config")

			Convey("Then the default settings are reported in milliseconds", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var body map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["region"], ShouldEqual, "upper")
				So(body["difficulty"], ShouldEqual, "medium")
				So(body["respawn_delay_ms"], ShouldEqual, 2500.0)
				So(body["session_ms"], ShouldEqual, 180000.0)
				So(body["countdown"], ShouldEqual, 10.0)
			})
		})

		Convey("When posting to a read-only endpoint", func() {
			before, _ := metrics.Value("bodytap_game_errors_by_component_total")
			w := do(mux, http.MethodPost, "/stats")

			Convey("Then the method is refused and counted", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(w.Body.String(), ShouldContainSubstring, "method_not_allowed")
				after, err := metrics.Value("bodytap_game_errors_by_component_total")
				So(err, ShouldBeNil)
				So(after, ShouldBeGreaterThan, before)
			})
		})

		Convey("When a client asks to play", func() {
			w := do(mux, http.MethodGet, "/play")

			Convey("Then the play handler takes the request", func() {
				So(played, ShouldBeTrue)
				So(w.Code, ShouldEqual, http.StatusSwitchingProtocols)
			})
		})
	})

	Convey("Given a server without a play handler", t, func() {
		mux := newMux(nil)

		Convey("Then /play is not routed", func() {
			w := do(mux, http.MethodGet, "/play")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped with metrics", t, func() {
		h := api.MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		}, "teapot")

		Convey("When it is called", func() {
			before, _ := metrics.Value("bodytap_game_http_requests_total")
			w := do(h, http.MethodGet, "/teapot")

			Convey("Then the response passes through and the request is counted", func() {
				So(w.Code, ShouldEqual, http.StatusTeapot)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "short and stout")
				after, err := metrics.Value("bodytap_game_http_requests_total")
				So(err, ShouldBeNil)
				So(after, ShouldEqual, before+1)
			})
		})
	})
}
