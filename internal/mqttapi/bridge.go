// Package mqttapi is the MQTT command bridge of spec.md §6: a topic router
// translating `/command/{net}/{swarm}/{addr}/{app}/{verb}` publishes into
// controller.Controller calls and publishing replies under
// `/reply/{token}`, grounded on the teacher's internal/mqtt/client.go
// (paho.mqtt.golang AutoReconnect/ConnectRetry/LastWill/onConnect/
// onConnectionLost idiom), adapted from status/heartbeat ingestion to
// command dispatch.
package mqttapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dotbot-project/fleet-controller/internal/controller"
	"github.com/dotbot-project/fleet-controller/internal/notify"
	"github.com/dotbot-project/fleet-controller/internal/robot"
)

const commandTopicFilter = "/command/+/+/+/+/+"

// Bridge owns the paho client and the controller it dispatches commands
// against.
type Bridge struct {
	client paho.Client
	ctrl   *controller.Controller
	logger *zap.Logger
}

// New builds a Bridge; call Connect to open the broker connection.
func New(brokerURL, clientID string, ctrl *controller.Controller, logger *zap.Logger) *Bridge {
	b := &Bridge{ctrl: ctrl, logger: logger}

	opts := paho.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetWill("/gateway/status", `{"status":"offline"}`, 1, true)
	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(b.onConnectionLost)

	b.client = paho.NewClient(opts)
	ctrl.AddListener(b.PublishNotification)
	return b
}

// Connect opens the broker connection and blocks until it succeeds or
// fails once.
func (b *Bridge) Connect() error {
	token := b.client.Connect()
	token.Wait()
	return token.Error()
}

// Disconnect publishes an offline retained status and closes the
// connection.
func (b *Bridge) Disconnect() {
	b.client.Publish("/gateway/status", 1, true, `{"status":"offline"}`)
	b.client.Disconnect(250)
}

// PublishNotification republishes a controller notification under
// /status/{address}; registered as a notify.Listener in New.
func (b *Bridge) PublishNotification(n notify.Notification) {
	payload, err := notify.EncodeJSON(n)
	if err != nil {
		b.logger.Error("encode mqtt notification", zap.Error(err))
		return
	}
	topic := fmt.Sprintf("/status/%s", n.Address.String())
	b.client.Publish(topic, 0, false, payload)
}

func (b *Bridge) onConnect(c paho.Client) {
	b.logger.Info("connected to mqtt broker")
	c.Publish("/gateway/status", 1, true, `{"status":"online"}`)

	token := c.Subscribe(commandTopicFilter, 1, b.handleCommand)
	token.Wait()
	if err := token.Error(); err != nil {
		b.logger.Error("mqtt subscribe failed", zap.String("topic", commandTopicFilter), zap.Error(err))
		return
	}
	b.logger.Info("subscribed to mqtt command topic", zap.String("topic", commandTopicFilter))
}

func (b *Bridge) onConnectionLost(_ paho.Client, err error) {
	b.logger.Warn("mqtt connection lost", zap.Error(err))
}

// commandEnvelope is the JSON body every /command/... publish carries. Token
// correlates the reply; callers that omit it get a server-generated one.
type commandEnvelope struct {
	Token     string            `json:"token"`
	MoveRaw   *robot.MoveRawCommand `json:"move_raw,omitempty"`
	RGBLed    *robot.RGBLedCommand  `json:"rgb_led,omitempty"`
	Action    uint8                 `json:"action,omitempty"`
	Kind      string                `json:"kind,omitempty"`
	Waypoints []robot.Waypoint      `json:"waypoints,omitempty"`
	Threshold uint8                 `json:"threshold,omitempty"`
}

type commandReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// handleCommand parses /command/{net}/{swarm}/{addr}/{app}/{verb} and
// dispatches to the matching controller operation.
func (b *Bridge) handleCommand(c paho.Client, msg paho.Message) {
	segments := strings.Split(strings.Trim(msg.Topic(), "/"), "/")
	if len(segments) != 6 {
		b.logger.Warn("malformed command topic", zap.String("topic", msg.Topic()))
		return
	}
	addrRaw, verb := segments[3], segments[5]

	addrVal, err := strconv.ParseUint(addrRaw, 16, 64)
	if err != nil {
		b.logger.Warn("invalid address in command topic", zap.String("addr", addrRaw))
		return
	}
	addr := robot.Address(addrVal)

	var env commandEnvelope
	if err := json.Unmarshal(msg.Payload(), &env); err != nil {
		b.logger.Warn("invalid command payload", zap.Error(err))
		return
	}
	if env.Token == "" {
		env.Token = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var dispatchErr error
	switch verb {
	case "move_raw":
		if env.MoveRaw == nil {
			dispatchErr = fmt.Errorf("mqtt: move_raw command missing body")
		} else {
			dispatchErr = b.ctrl.SendMoveRaw(ctx, addr, *env.MoveRaw)
		}
	case "rgb_led":
		if env.RGBLed == nil {
			dispatchErr = fmt.Errorf("mqtt: rgb_led command missing body")
		} else {
			dispatchErr = b.ctrl.SendRgbLed(ctx, addr, *env.RGBLed)
		}
	case "xgo_action":
		dispatchErr = b.ctrl.SendXgoAction(ctx, addr, env.Action)
	case "waypoints":
		kind := robot.PositionLH2
		if env.Kind == "gps" {
			kind = robot.PositionGPS
		}
		dispatchErr = b.ctrl.SendWaypoints(ctx, addr, kind, env.Waypoints, env.Threshold)
	case "clear_positions":
		dispatchErr = b.ctrl.ClearPositionHistory(addr)
	default:
		dispatchErr = fmt.Errorf("mqtt: unknown verb %q", verb)
	}

	reply := commandReply{OK: dispatchErr == nil}
	if dispatchErr != nil {
		reply.Error = dispatchErr.Error()
		b.logger.Warn("mqtt command failed", zap.String("verb", verb), zap.String("addr", addr.String()), zap.Error(dispatchErr))
	}
	b.publishReply(env.Token, reply)
}

func (b *Bridge) publishReply(token string, reply commandReply) {
	payload, err := json.Marshal(reply)
	if err != nil {
		b.logger.Error("encode mqtt reply", zap.Error(err))
		return
	}
	topic := fmt.Sprintf("/reply/%s", token)
	token2 := b.client.Publish(topic, 1, false, payload)
	token2.Wait()
}
