package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const PlayerStateKey = "playerState"

type Rotation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

type PlayerState struct {
	Position mgl64.Vec3
	Rotation Rotation
}

// storedState is the wire shape: position is three plain scalars.
type storedState struct {
	Position storedPosition `json:"position"`
	Rotation Rotation       `json:"rotation"`
}

type storedPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

const playerStateSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["position", "rotation"],
  "properties": {
    "position": {
      "type": "object",
      "required": ["x", "y", "z"],
      "properties": {
        "x": {"type": "number"},
        "y": {"type": "number"},
        "z": {"type": "number"}
      }
    },
    "rotation": {
      "type": "object",
      "required": ["yaw", "pitch"],
      "properties": {
        "yaw": {"type": "number"},
        "pitch": {"type": "number"}
      }
    }
  }
}`

var playerStateSchema = jsonschema.MustCompileString("player_state.schema.json", playerStateSchemaJSON)

func encodePlayerState(state PlayerState) ([]byte, error) {
	return json.Marshal(storedState{
		Position: storedPosition{X: state.Position.X(), Y: state.Position.Y(), Z: state.Position.Z()},
		Rotation: state.Rotation,
	})
}

func decodePlayerState(raw []byte) (PlayerState, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return PlayerState{}, fmt.Errorf("decode player state: %w", err)
	}
	if err := playerStateSchema.Validate(doc); err != nil {
		return PlayerState{}, fmt.Errorf("validate player state: %w", err)
	}

	var stored storedState
	if err := json.Unmarshal(raw, &stored); err != nil {
		return PlayerState{}, fmt.Errorf("decode player state: %w", err)
	}
	return PlayerState{
		Position: mgl64.Vec3{stored.Position.X, stored.Position.Y, stored.Position.Z},
		Rotation: stored.Rotation,
	}, nil
}
