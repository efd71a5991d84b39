package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/bodytap/internal/domain/geometry"
	"github.com/okian/bodytap/internal/domain/pose"
	"github.com/okian/bodytap/internal/domain/session"
	"github.com/okian/bodytap/internal/engine"
	"github.com/okian/bodytap/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var errFull = errors.New("full")

type fakeRegistry struct {
	mu     sync.Mutex
	refuse bool
	opened int
	closed []string
	last   session.State
}

func (r *fakeRegistry) Open(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refuse {
		return "", errFull
	}
	r.opened++
	return "s1", nil
}

func (r *fakeRegistry) Update(_ string, st session.State) {
	r.mu.Lock()
	r.last = st
	r.mu.Unlock()
}

func (r *fakeRegistry) Close(id string) {
	r.mu.Lock()
	r.closed = append(r.closed, id)
	r.mu.Unlock()
}

func (r *fakeRegistry) closedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.closed...)
}

// inbound mirrors queue.Message with a raw payload for decoding in tests.
type inbound struct {
	Type    string          `json:"type"`
	Session string          `json:"session"`
	Data    json.RawMessage `json:"data"`
}

type player struct {
	conn *websocket.Conn
	ts   float64
}

func dial(url string) (*player, error) {
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		return nil, err
	}
	return &player{conn: conn}, nil
}

func (p *player) send(typ string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return p.conn.WriteJSON(envelope{Type: typ, Data: raw})
}

// sendFrame sends one frame, optionally with a right wrist at the given
// surface point.
func (p *player) sendFrame(wrist *geometry.Point) error {
	p.ts += 33
	fm := FrameMessage{
		TimestampMS: p.ts,
		Surface:     geometry.Size{Width: 640, Height: 480},
		View:        geometry.Size{Width: 640, Height: 480},
	}
	if wrist != nil {
		kps := make([]pose.Keypoint, pose.NumLandmarks)
		kps[pose.RightWrist] = pose.Keypoint{X: wrist.X / 640, Y: wrist.Y / 480, Visibility: 1}
		fm.Poses = [][]pose.Keypoint{kps}
	}
	return p.send(TypeFrame, fm)
}

// frame sends an empty frame and returns the scene it produced.
func (p *player) frame() (SceneData, error) {
	if err := p.sendFrame(nil); err != nil {
		return SceneData{}, err
	}
	m, err := p.await(TypeScene)
	if err != nil {
		return SceneData{}, err
	}
	var sd SceneData
	err = json.Unmarshal(m.Data, &sd)
	return sd, err
}

// await reads until a message of the given type arrives.
func (p *player) await(typ string) (inbound, error) {
	_ = p.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var m inbound
		if err := p.conn.ReadJSON(&m); err != nil {
			return inbound{}, err
		}
		if m.Type == typ {
			return m, nil
		}
	}
}

func testSettings() engine.Settings {
	s := engine.DefaultSettings()
	s.Countdown = 0
	return s
}

func TestHandler_Play(t *testing.T) {
	Convey("Given a running websocket handler", t, func() {
		reg := &fakeRegistry{}
		srv := httptest.NewServer(NewHandler(reg, testSettings(), WithSeed(1)))
		defer srv.Close()

		p, err := dial(srv.URL)
		So(err, ShouldBeNil)
		defer p.conn.Close()

		Convey("When the player starts a fast game", func() {
			So(p.send(TypeStart, StartMessage{Difficulty: "fast", SessionSeconds: 30}), ShouldBeNil)
			m, err := p.await(TypeSession)
			So(err, ShouldBeNil)

			var sd SessionData
			So(json.Unmarshal(m.Data, &sd), ShouldBeNil)

			Convey("Then the session is announced with the chosen settings", func() {
				So(sd.ID, ShouldEqual, "s1")
				So(string(sd.Settings.Difficulty), ShouldEqual, "fast")
				So(sd.Settings.SessionDuration, ShouldEqual, 30*time.Second)
			})

			Convey("And a target appears within a few frames", func() {
				var scene SceneData
				for i := 0; i < 5 && scene.Target == nil; i++ {
					scene, err = p.frame()
					So(err, ShouldBeNil)
				}
				So(scene.Target, ShouldNotBeNil)
				So(scene.Phase, ShouldEqual, "active")

				Convey("When a wrist touches it", func() {
					center := scene.Target.Center
					So(p.sendFrame(&center), ShouldBeNil)

					Convey("Then the player scores", func() {
						hit, err := p.await(TypeHit)
						So(err, ShouldBeNil)
						var v ValueData
						So(json.Unmarshal(hit.Data, &v), ShouldBeNil)
						So(v.Value, ShouldEqual, 1)
					})
				})
			})

			Convey("When the player sends an unknown message", func() {
				So(p.send("dance", nil), ShouldBeNil)

				Convey("Then an error comes back and the game goes on", func() {
					m, err := p.await(TypeError)
					So(err, ShouldBeNil)
					So(string(m.Data), ShouldContainSubstring, "dance")
					_, err = p.frame()
					So(err, ShouldBeNil)
				})
			})

			Convey("When the player leaves", func() {
				_ = p.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

				Convey("Then the session is released", func() {
					deadline := time.Now().Add(5 * time.Second)
					for len(reg.closedIDs()) == 0 && time.Now().Before(deadline) {
						time.Sleep(10 * time.Millisecond)
					}
					So(reg.closedIDs(), ShouldResemble, []string{"s1"})
				})
			})
		})

		Convey("When the first message is already a frame", func() {
			So(p.sendFrame(nil), ShouldBeNil)

			Convey("Then the game starts with the default settings", func() {
				m, err := p.await(TypeSession)
				So(err, ShouldBeNil)
				var sd SessionData
				So(json.Unmarshal(m.Data, &sd), ShouldBeNil)
				So(string(sd.Settings.Difficulty), ShouldEqual, "medium")

				_, err = p.await(TypeScene)
				So(err, ShouldBeNil)
			})
		})

		Convey("When the first message has an unknown type", func() {
			So(p.send("hello", nil), ShouldBeNil)

			Convey("Then the connection is refused with an error", func() {
				m, err := p.await(TypeError)
				So(err, ShouldBeNil)
				So(string(m.Data), ShouldContainSubstring, "hello")
			})
		})

		Convey("When the start names an unknown region", func() {
			So(p.send(TypeStart, StartMessage{Region: "torso"}), ShouldBeNil)
			m, err := p.await(TypeError)

			Convey("Then the error explains why", func() {
				So(err, ShouldBeNil)
				So(string(m.Data), ShouldContainSubstring, "torso")
			})
		})
	})

	Convey("Given a registry that is full", t, func() {
		reg := &fakeRegistry{refuse: true}
		srv := httptest.NewServer(NewHandler(reg, testSettings()))
		defer srv.Close()

		p, err := dial(srv.URL)
		So(err, ShouldBeNil)
		defer p.conn.Close()

		Convey("When a player starts", func() {
			So(p.send(TypeStart, StartMessage{}), ShouldBeNil)
			m, err := p.await(TypeError)

			Convey("Then it is turned away", func() {
				So(err, ShouldBeNil)
				So(string(m.Data), ShouldContainSubstring, "full")
			})
		})
	})
}

func TestHandler_DrainOnClose(t *testing.T) {
	Convey("Given a player in a running game", t, func() {
		reg := &fakeRegistry{}
		srv := httptest.NewServer(NewHandler(reg, testSettings(), WithSeed(1)))
		defer srv.Close()

		p, err := dial(srv.URL)
		So(err, ShouldBeNil)
		defer p.conn.Close()

		So(p.send(TypeStart, StartMessage{}), ShouldBeNil)
		_, err = p.await(TypeSession)
		So(err, ShouldBeNil)

		Convey("When frames are followed by an unreadable message", func() {
			for i := 0; i < 5; i++ {
				So(p.sendFrame(nil), ShouldBeNil)
			}
			So(p.conn.WriteMessage(websocket.TextMessage, []byte("not json")), ShouldBeNil)

			var (
				last     SceneData
				closeErr error
			)
			_ = p.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			for {
				var m inbound
				if err := p.conn.ReadJSON(&m); err != nil {
					closeErr = err
					break
				}
				if m.Type == TypeScene {
					So(json.Unmarshal(m.Data, &last), ShouldBeNil)
				}
			}

			Convey("Then the reply to the last frame arrives before a normal close", func() {
				So(last.TimestampMS, ShouldEqual, p.ts)
				So(websocket.IsCloseError(closeErr, websocket.CloseNormalClosure), ShouldBeTrue)
			})
		})
	})
}

func TestSceneData(t *testing.T) {
	Convey("Given a scene on a mirrored, scaled view", t, func() {
		surface := geometry.Size{Width: 640, Height: 480}
		vp := geometry.CoverViewport(surface, geometry.Size{Width: 1280, Height: 960}, true)
		s := engine.Scene{
			Surface: surface,
			View:    vp,
			State:   session.State{Phase: session.PhaseActive, Score: 3, Remaining: 1500 * time.Millisecond},
		}

		Convey("Then phase, score and time are carried over", func() {
			sd := sceneData(s, time.Now())
			So(sd.Phase, ShouldEqual, "active")
			So(sd.Score, ShouldEqual, 3)
			So(sd.RemainingMS, ShouldEqual, int64(1500))
			So(sd.Target, ShouldBeNil)
		})
	})
}

func TestClientOutbox(t *testing.T) {
	Convey("Given a client whose outbox is saturated by scenes", t, func() {
		reg := &fakeRegistry{}
		c := newClient("s1", nil, reg, 2, 1, time.Second, logger.Get())
		ctx := context.Background()

		c.Render(ctx, engine.Scene{})
		c.Render(ctx, engine.Scene{})
		c.OnSessionEnd(7)
		_ = c.outbox.Close()

		var (
			types []string
			final any
		)
		for m := range c.outbox.Dequeue(ctx) {
			types = append(types, m.Type)
			if m.Type == TypeEnd {
				final = m.Data
			}
		}

		Convey("Then the surplus scene is dropped and the end still arrives", func() {
			So(types, ShouldResemble, []string{TypeScene, TypeEnd})
			So(final, ShouldResemble, ValueData{Value: 7})
			So(c.dropped, ShouldEqual, 1)
		})
	})

	Convey("Given handlers with different outbox sizes", t, func() {
		Convey("Then the event reserve never exceeds half the outbox", func() {
			So(NewHandler(nil, engine.DefaultSettings(), WithOutboxSize(2)).eventReserve, ShouldEqual, 1)
			So(NewHandler(nil, engine.DefaultSettings()).eventReserve, ShouldEqual, defaultEventReserve)
			So(NewHandler(nil, engine.DefaultSettings(), WithEventReserve(8)).eventReserve, ShouldEqual, 8)
		})
	})
}
