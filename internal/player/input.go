package player

import (
	"encoding/json"
	"fmt"

	"github.com/talgya/taixu/internal/world"
)

// Key is a held movement key.
type Key uint8

const (
	Up Key = iota
	Down
	Left
	Right
	numKeys
)

var keyNames = [numKeys]string{"up", "down", "left", "right"}

// Screen-space unit vector contributed by each key.
var keyVectors = [numKeys]world.Vec{
	Up:    {X: 0, Y: -1},
	Down:  {X: 0, Y: 1},
	Left:  {X: -1, Y: 0},
	Right: {X: 1, Y: 0},
}

func (k Key) String() string {
	if k < numKeys {
		return keyNames[k]
	}
	return fmt.Sprintf("key(%d)", uint8(k))
}

// ParseKey maps "up", "down", "left" or "right" (or the WASD letters) to a Key.
func ParseKey(s string) (Key, bool) {
	switch s {
	case "up", "w", "ArrowUp":
		return Up, true
	case "down", "s", "ArrowDown":
		return Down, true
	case "left", "a", "ArrowLeft":
		return Left, true
	case "right", "d", "ArrowRight":
		return Right, true
	}
	return 0, false
}

// EventKind distinguishes input events.
type EventKind uint8

const (
	EventKeyDown EventKind = iota + 1
	EventKeyUp
	EventTileClicked
)

var eventKindNames = map[EventKind]string{
	EventKeyDown:     "key_down",
	EventKeyUp:       "key_up",
	EventTileClicked: "tile_clicked",
}

func (k EventKind) String() string {
	if n, ok := eventKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("event(%d)", uint8(k))
}

// Event is one discrete input from the client.
type Event struct {
	Kind EventKind
	Key  Key
	Tile world.Coord
}

// KeyDown builds a key press event.
func KeyDown(k Key) Event { return Event{Kind: EventKeyDown, Key: k} }

// KeyUp builds a key release event.
func KeyUp(k Key) Event { return Event{Kind: EventKeyUp, Key: k} }

// TileClicked builds a click-to-move event.
func TileClicked(col, row int) Event {
	return Event{Kind: EventTileClicked, Tile: world.C(col, row)}
}

// wireEvent is the JSON shape clients send:
//
//	{"type":"key_down","key":"up"}
//	{"type":"tile_clicked","col":3,"row":7}
type wireEvent struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
	Col  int    `json:"col"`
	Row  int    `json:"row"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{Type: e.Kind.String()}
	switch e.Kind {
	case EventKeyDown, EventKeyUp:
		w.Key = e.Key.String()
	case EventTileClicked:
		w.Col, w.Row = e.Tile.Col, e.Tile.Row
	default:
		return nil, fmt.Errorf("unknown event kind %d", e.Kind)
	}
	return json.Marshal(w)
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Type {
	case "key_down", "key_up":
		k, ok := ParseKey(w.Key)
		if !ok {
			return fmt.Errorf("unknown key %q", w.Key)
		}
		if w.Type == "key_down" {
			*e = KeyDown(k)
		} else {
			*e = KeyUp(k)
		}
	case "tile_clicked":
		*e = TileClicked(w.Col, w.Row)
	default:
		return fmt.Errorf("unknown event type %q", w.Type)
	}
	return nil
}
