package api

import (
	"net/http"

	"github.com/okian/bodytap/internal/engine"
)

// SettingsProvider exposes the default game settings.
type SettingsProvider interface {
	Settings() engine.Settings
}

// ConfigHandler reports the settings new sessions start from.
type ConfigHandler struct {
	provider SettingsProvider
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(p SettingsProvider) *ConfigHandler {
	return &ConfigHandler{provider: p}
}

// configResponse is the client-facing shape of engine.Settings with
// durations in milliseconds.
type configResponse struct {
	Region           string  `json:"region"`
	Difficulty       string  `json:"difficulty"`
	RespawnDelayMS   int64   `json:"respawn_delay_ms"`
	SessionMS        int64   `json:"session_ms"`
	Countdown        int     `json:"countdown"`
	TargetTTLMS      int64   `json:"target_ttl_ms"`
	RadiusRatio      float64 `json:"radius_ratio"`
	EffectDurationMS int64   `json:"effect_duration_ms"`
	VariantCount     int     `json:"variant_count"`
}

// HandleConfig handles GET /config requests.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	s := h.provider.Settings()
	writeJSON(w, http.StatusOK, configResponse{
		Region:           string(s.Region),
		Difficulty:       string(s.Difficulty),
		RespawnDelayMS:   s.Difficulty.RespawnDelay().Milliseconds(),
		SessionMS:        s.SessionDuration.Milliseconds(),
		Countdown:        s.Countdown,
		TargetTTLMS:      s.TargetTTL.Milliseconds(),
		RadiusRatio:      s.RadiusRatio,
		EffectDurationMS: s.EffectDuration.Milliseconds(),
		VariantCount:     s.VariantCount,
	})
}
