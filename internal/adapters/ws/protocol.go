package ws

import (
	"encoding/json"
	"time"

	"github.com/okian/bodytap/internal/domain/geometry"
	"github.com/okian/bodytap/internal/domain/pose"
	"github.com/okian/bodytap/internal/engine"
)

// Inbound message types.
const (
	TypeStart = "start"
	TypeFrame = "frame"
)

// Outbound message types.
const (
	TypeSession   = "session"
	TypeScene     = "scene"
	TypeCountdown = "countdown"
	TypeHit       = "hit"
	TypeEnd       = "end"
	TypeError     = "error"
)

// envelope is the outer shape of every inbound message.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// StartMessage optionally overrides the server's default game settings.
// It is only honoured as the first message of a connection; a connection
// that opens with a frame plays with the defaults.
type StartMessage struct {
	Region         string `json:"region,omitempty"`
	Difficulty     string `json:"difficulty,omitempty"`
	SessionSeconds int    `json:"session_seconds,omitempty"`
}

// FrameMessage carries one camera frame's detections from the browser.
type FrameMessage struct {
	TimestampMS float64           `json:"timestamp_ms"`
	Surface     geometry.Size     `json:"surface"`
	View        geometry.Size     `json:"view"`
	Mirrored    bool              `json:"mirrored"`
	Zones       []geometry.Rect   `json:"zones,omitempty"` // view pixels
	Poses       [][]pose.Keypoint `json:"poses,omitempty"`
}

// Frame converts the message into a loop frame. Poses travel in Frame.Data.
func (m *FrameMessage) Frame() engine.Frame {
	skeletons := make([]pose.Skeleton, len(m.Poses))
	for i, p := range m.Poses {
		skeletons[i] = pose.FromSlice(p)
	}
	return engine.Frame{
		Timestamp: time.Duration(m.TimestampMS * float64(time.Millisecond)),
		Surface:   m.Surface,
		View:      geometry.CoverViewport(m.Surface, m.View, m.Mirrored),
		Zones:     m.Zones,
		Data:      skeletons,
	}
}

// SessionData announces the session id and effective settings.
type SessionData struct {
	ID       string          `json:"id"`
	Settings engine.Settings `json:"settings"`
}

// TargetData is a target as the client draws it.
type TargetData struct {
	ID      uint64         `json:"id"`
	Center  geometry.Point `json:"center"` // view pixels
	Radius  float64        `json:"radius"` // view pixels
	Variant int            `json:"variant"`
}

// EffectData is a hit effect as the client draws it.
type EffectData struct {
	Center  geometry.Point `json:"center"`
	Radius  float64        `json:"radius"`
	Variant int            `json:"variant"`
	AgeMS   int64          `json:"age_ms"`
}

// SceneData is the per-frame render state sent to the client.
type SceneData struct {
	TimestampMS float64      `json:"timestamp_ms"`
	Phase       string       `json:"phase"`
	Score       int          `json:"score"`
	RemainingMS int64        `json:"remaining_ms"`
	Countdown   int          `json:"countdown"`
	Target      *TargetData  `json:"target,omitempty"`
	Effects     []EffectData `json:"effects,omitempty"`
}

// ValueData carries a countdown value or a score.
type ValueData struct {
	Value int `json:"value"`
}

// ErrorData reports a protocol problem to the client.
type ErrorData struct {
	Message string `json:"message"`
}

// sceneData maps a scene into view space for the client.
func sceneData(s engine.Scene, now time.Time) SceneData {
	out := SceneData{
		TimestampMS: float64(s.Timestamp) / float64(time.Millisecond),
		Phase:       s.State.Phase.String(),
		Score:       s.State.Score,
		RemainingMS: s.State.Remaining.Milliseconds(),
		Countdown:   s.State.Countdown,
	}
	if t := s.Target; t != nil {
		out.Target = &TargetData{
			ID:      uint64(t.ID),
			Center:  s.View.ToView(t.Center),
			Radius:  s.View.LengthToView(t.Radius),
			Variant: t.Variant,
		}
	}
	for _, e := range s.Effects {
		out.Effects = append(out.Effects, EffectData{
			Center:  s.View.ToView(e.Center),
			Radius:  s.View.LengthToView(e.Radius),
			Variant: e.Variant,
			AgeMS:   now.Sub(e.CreatedAt).Milliseconds(),
		})
	}
	return out
}
