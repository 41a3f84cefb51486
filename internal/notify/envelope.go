package notify

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Envelope is the outbound wire shape for a Notification, distinct from the
// fixed-layout binary packet codec in internal/protocol — this is the
// WS/MQTT client-facing format, adapted from the teacher's protocol.Codec
// (msgpack-first, JSON fallback) idiom.
type Envelope struct {
	Kind    string      `msgpack:"kind" json:"kind"`
	Address string      `msgpack:"address" json:"address"`
	DotBot  interface{} `msgpack:"dotbot" json:"dotbot"`
}

// dotBotView is the client-facing projection of a robot.Record; it mirrors
// original_source/dotbot/models.py's DotBotModel field set rather than
// exposing the registry's internal Record shape directly.
type dotBotView struct {
	Address     string      `msgpack:"address" json:"address"`
	Application uint8       `msgpack:"application" json:"application"`
	SwarmID     string      `msgpack:"swarm_id" json:"swarm_id"`
	Mode        uint8       `msgpack:"mode" json:"mode"`
	Status      string      `msgpack:"status" json:"status"`
	LastSeen    int64       `msgpack:"last_seen" json:"last_seen"`
	Battery     float64     `msgpack:"battery" json:"battery"`
	Calibrated  bool        `msgpack:"calibrated" json:"calibrated"`
	Positions   interface{} `msgpack:"position_history" json:"position_history"`
}

// EncodeMsgpack renders n as a msgpack-encoded envelope, the transport
// format of the WS hub.
func EncodeMsgpack(n Notification) ([]byte, error) {
	return msgpack.Marshal(toEnvelope(n))
}

// EncodeJSON is the human-debuggable fallback, used by the MQTT bridge and
// the audit sink.
func EncodeJSON(n Notification) ([]byte, error) {
	return json.Marshal(toEnvelope(n))
}

func toEnvelope(n Notification) Envelope {
	r := n.Record
	return Envelope{
		Kind:    n.Kind.String(),
		Address: n.Address.String(),
		DotBot: dotBotView{
			Address:     r.Address.String(),
			Application: uint8(r.Application),
			SwarmID:     r.SwarmID,
			Mode:        uint8(r.Mode),
			Status:      r.Status.String(),
			LastSeen:    r.LastSeen.Unix(),
			Battery:     r.Battery,
			Calibrated:  r.Calibrated,
			Positions:   r.PositionHistory(),
		},
	}
}
