// Package controller is the fleet state engine: it owns the robot registry,
// turns public operations into outbound packets handed to the gateway
// adapter, applies inbound frames to the registry, runs the periodic status
// sweep, and fans out notifications. Grounded on the teacher's
// robot.Manager (mutex-protected map, single entry point per mutation) for
// the registry-ownership shape, generalized here from a per-connection ROS2
// command relay to the DotBot packet/telemetry pipeline of spec.md §4.3.
package controller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dotbot-project/fleet-controller/internal/adapter"
	"github.com/dotbot-project/fleet-controller/internal/notify"
	"github.com/dotbot-project/fleet-controller/internal/protocol"
	"github.com/dotbot-project/fleet-controller/internal/robot"
)

// Controller is the single long-lived value exposing the fleet's public
// operations (spec.md §9: "best modeled as fields on a single long-lived
// controller value ... avoid process-wide singletons").
type Controller struct {
	registry    *robot.Registry
	link        adapter.Adapter
	calibration *protocol.Lh2CalibrationBody
	hub         *notify.Hub
	logger      *zap.Logger
	recordCmd   CommandRecorder

	sweepOnce sync.Once
	stopSweep chan struct{}
}

// CommandRecorder observes every outbound command dispatch, independent of
// the notification fan-out — the audit sink's command-stream hook (§11).
type CommandRecorder func(ctx context.Context, addr robot.Address, verb string, body interface{})

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithCalibration preloads the calibration artifact the controller hands to
// newly advertising, uncalibrated DotBots.
func WithCalibration(cal *protocol.Lh2CalibrationBody) Option {
	return func(c *Controller) { c.calibration = cal }
}

// WithCommandRecorder attaches an audit hook invoked after every successful
// outbound command.
func WithCommandRecorder(rec CommandRecorder) Option {
	return func(c *Controller) { c.recordCmd = rec }
}

// New builds a Controller over link, ready to call Start. swarmID stamps
// every record the controller creates (spec.md §3's mandated swarm id
// field); pass "" to fall back to the default deployment swarm "0000".
func New(link adapter.Adapter, logger *zap.Logger, swarmID string, opts ...Option) *Controller {
	if swarmID == "" {
		swarmID = "0000"
	}
	c := &Controller{
		registry: robot.NewRegistry(swarmID),
		link:     link,
		hub:      notify.NewHub(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the adapter's byte pump, wiring its decoded frames to
// HandleFrame, and begins the status sweep.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.link.Start(ctx, c.HandleFrame); err != nil {
		return err
	}
	c.StartSweep(ctx, time.Second)
	return nil
}

// Close stops the sweep goroutine and closes the adapter's link.
func (c *Controller) Close() error {
	if c.stopSweep != nil {
		close(c.stopSweep)
	}
	return c.link.Close()
}

// AddListener registers l for every future notification and returns a token
// for RemoveListener.
func (c *Controller) AddListener(l notify.Listener) int { return c.hub.Add(l) }

// RemoveListener unregisters a listener previously added with AddListener.
func (c *Controller) RemoveListener(id int) { c.hub.Remove(id) }

// Get returns a snapshot of the record at addr.
func (c *Controller) Get(addr robot.Address) (robot.Record, bool) {
	r, ok := c.registry.Get(addr)
	if !ok {
		return robot.Record{}, false
	}
	cp := *r
	cp.Waypoints = append([]robot.Waypoint(nil), r.Waypoints...)
	return cp, true
}

// List returns a sorted, filtered snapshot of the registry.
func (c *Controller) List(filter robot.Filter) []robot.Record {
	return c.registry.List(filter)
}

// SendMoveRaw builds a CmdMoveRaw packet for addr and hands it to the
// adapter, reflecting cmd in the record. Returns ErrUnknownDotBot if addr has
// no record.
func (c *Controller) SendMoveRaw(ctx context.Context, addr robot.Address, cmd robot.MoveRawCommand) error {
	if !c.registry.Mutate(addr, func(r *robot.Record) { r.MoveRaw = &cmd }) {
		return &ErrUnknownDotBot{Address: addr}
	}
	return c.send(ctx, addr, "move_raw", protocol.CmdMoveRaw, protocol.MoveRawBody{
		LeftX: cmd.LeftX, LeftY: cmd.LeftY, RightX: cmd.RightX, RightY: cmd.RightY,
	})
}

// SendRgbLed builds a CmdRgbLed packet for addr, reflects cmd in the record,
// and publishes a RELOAD notification.
func (c *Controller) SendRgbLed(ctx context.Context, addr robot.Address, cmd robot.RGBLedCommand) error {
	if !c.registry.Mutate(addr, func(r *robot.Record) { r.RGBLed = &cmd }) {
		return &ErrUnknownDotBot{Address: addr}
	}
	if err := c.send(ctx, addr, "rgb_led", protocol.CmdRgbLed, protocol.RgbLedBody{Red: cmd.Red, Green: cmd.Green, Blue: cmd.Blue}); err != nil {
		return err
	}
	c.publishReload(addr)
	return nil
}

// SendXgoAction builds a CmdXgoAction packet for addr with no state
// reflection.
func (c *Controller) SendXgoAction(ctx context.Context, addr robot.Address, action uint8) error {
	if _, ok := c.registry.Get(addr); !ok {
		return &ErrUnknownDotBot{Address: addr}
	}
	return c.send(ctx, addr, "xgo_action", protocol.CmdXgoAction, protocol.XgoActionBody{Action: action})
}

// SendWaypoints prepends the robot's current position to the stored
// waypoint list while sending only the user-supplied list on the wire, then
// publishes RELOAD.
func (c *Controller) SendWaypoints(ctx context.Context, addr robot.Address, kind robot.PositionKind, waypoints []robot.Waypoint, threshold uint8) error {
	rec, ok := c.registry.Get(addr)
	if !ok {
		return &ErrUnknownDotBot{Address: addr}
	}

	var body protocol.Body
	var payloadType protocol.PayloadType
	switch kind {
	case robot.PositionLH2:
		wire := make([]protocol.Lh2LocationBody, 0, len(waypoints))
		for _, wp := range waypoints {
			wire = append(wire, protocol.Lh2LocationBody{
				PosX: microUnits(wp.LH2.X), PosY: microUnits(wp.LH2.Y), PosZ: microUnits(wp.LH2.Z),
			})
		}
		body = protocol.Lh2WaypointsBody{Threshold: threshold, Waypoints: wire}
		payloadType = protocol.Lh2WaypointsType
	case robot.PositionGPS:
		wire := make([]protocol.GpsPositionBody, 0, len(waypoints))
		for _, wp := range waypoints {
			wire = append(wire, protocol.GpsPositionBody{
				Latitude: microDegrees(wp.GPS.Latitude), Longitude: microDegrees(wp.GPS.Longitude),
			})
		}
		body = protocol.GpsWaypointsBody{Threshold: threshold, Waypoints: wire}
		payloadType = protocol.GpsWaypointsType
	}

	stored := waypoints
	if rec.LH2Position != nil && kind == robot.PositionLH2 {
		stored = append([]robot.Waypoint{{Kind: robot.PositionLH2, LH2: *rec.LH2Position}}, waypoints...)
	} else if rec.GPSPosition != nil && kind == robot.PositionGPS {
		stored = append([]robot.Waypoint{{Kind: robot.PositionGPS, GPS: *rec.GPSPosition}}, waypoints...)
	}

	c.registry.Mutate(addr, func(r *robot.Record) {
		r.Waypoints = stored
		r.WaypointsThreshold = threshold
	})

	verb := "waypoints"
	if err := c.send(ctx, addr, verb, payloadType, body); err != nil {
		return err
	}
	c.publishReload(addr)
	return nil
}

// ClearPositionHistory empties addr's position history and publishes RELOAD.
func (c *Controller) ClearPositionHistory(addr robot.Address) error {
	if !c.registry.Mutate(addr, func(r *robot.Record) { r.ClearPositionHistory() }) {
		return &ErrUnknownDotBot{Address: addr}
	}
	c.publishReload(addr)
	return nil
}

// send is the shared outbound path: build the frame, hand it to the
// adapter, and invoke the audit hook (if any) on success. verb identifies
// the command for CommandRecorder and is not placed on the wire.
func (c *Controller) send(ctx context.Context, addr robot.Address, verb string, pt protocol.PayloadType, body protocol.Body) error {
	frame := protocol.Frame{
		Header: protocol.Header{
			Version:     protocol.Version,
			Kind:        protocol.KindData,
			Destination: uint64(addr),
			Source:      uint64(robot.GatewayAddress),
		},
		PayloadType: pt,
		Body:        body,
	}
	if err := c.link.Send(ctx, frame); err != nil {
		return err
	}
	if c.recordCmd != nil {
		c.recordCmd(ctx, addr, verb, body)
	}
	return nil
}

func (c *Controller) publishReload(addr robot.Address) {
	rec, ok := c.registry.Get(addr)
	if !ok {
		return
	}
	c.hub.Publish(notify.Notification{Kind: notify.Reload, Address: addr, Record: *rec})
}

func (c *Controller) publishUpdate(addr robot.Address) {
	rec, ok := c.registry.Get(addr)
	if !ok {
		return
	}
	c.hub.Publish(notify.Notification{Kind: notify.Update, Address: addr, Record: *rec})
}

func microUnits(meters float64) uint32   { return uint32(int64(meters * 1e6)) }
func microDegrees(degrees float64) int32 { return int32(degrees * 1e6) }
