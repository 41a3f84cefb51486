package controller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dotbot-project/fleet-controller/internal/notify"
	"github.com/dotbot-project/fleet-controller/internal/protocol"
	"github.com/dotbot-project/fleet-controller/internal/robot"
)

// HandleFrame is the inbound-frame pipeline of spec.md §4.3: drop echoes and
// reserved sources, gate unknown robots on advertisements only (invariant
// T), create-or-update the record, dispatch by payload type, bump
// last_seen (invariant M), and notify. It is the adapter's onFrame callback
// and therefore the only place the registry is mutated from inbound traffic.
func (c *Controller) HandleFrame(frame protocol.Frame) {
	switch frame.PayloadType {
	case protocol.CmdMoveRaw, protocol.CmdRgbLed:
		// The controller never ingests its own outbound commands.
		return
	}

	source := frame.Header.Source
	if source == uint64(robot.GatewayAddress) || source == uint64(robot.BroadcastAddress) {
		return
	}
	addr := robot.Address(source)

	_, known := c.registry.Get(addr)
	if !known && frame.PayloadType != protocol.AdvertisementType {
		return
	}

	now := time.Now()
	var created, categorical, fieldChanged bool

	if !known {
		app := robot.DotBot
		if adv, ok := frame.Body.(protocol.AdvertisementBody); ok {
			app = robot.ApplicationType(adv.Application)
		}
		c.registry.GetOrCreate(addr, app, now)
		created = true
	}

	c.registry.Mutate(addr, func(r *robot.Record) {
		switch body := frame.Body.(type) {
		case protocol.AdvertisementBody:
			if robot.ApplicationType(body.Application) != r.Application {
				r.Application = robot.ApplicationType(body.Application)
				categorical = true
			}
			if body.Extended != nil {
				c.applyAdvertisementExtended(r, *body.Extended, &fieldChanged)
			}

		case protocol.GpsPositionBody:
			r.Calibrated = true
			lat, lon := fromMicroDegrees(body.Latitude), fromMicroDegrees(body.Longitude)
			r.GPSPosition = &robot.GPSPosition{Latitude: lat, Longitude: lon}
			if r.TryAppendPosition(robot.Position{Kind: robot.PositionGPS, GPS: *r.GPSPosition}, robot.GPSDistanceThreshold, robot.Distance) {
				fieldChanged = true
			}

		case protocol.SailBotDataBody:
			lat, lon := fromMicroDegrees(body.Latitude), fromMicroDegrees(body.Longitude)
			r.GPSPosition = &robot.GPSPosition{Latitude: lat, Longitude: lon}
			direction := int16(body.Direction)
			r.Direction = &direction
			wind := int16(body.Wind)
			r.WindAngle = &wind
			rudder := body.Rudder
			r.RudderAngle = &rudder
			sail := body.Sail
			r.SailAngle = &sail
			if r.TryAppendPosition(robot.Position{Kind: robot.PositionGPS, GPS: *r.GPSPosition}, robot.GPSDistanceThreshold, robot.Distance) {
				fieldChanged = true
			}

		case protocol.DotBotDataBody:
			// Debug-only telemetry (spec.md §4.3 step 5): direction is
			// recorded, the raw LH2 samples are not persisted.
			direction := body.Direction
			r.Direction = &direction

		case protocol.Lh2LocationBody:
			if !r.Calibrated {
				// Calibration precondition (invariant C): position is
				// ignored until a calibrated advertisement has been seen.
				return
			}
			pos := robot.LH2Position{X: fromMicroUnits(body.PosX), Y: fromMicroUnits(body.PosY), Z: fromMicroUnits(body.PosZ)}
			r.LH2Position = &pos
			if r.TryAppendPosition(robot.Position{Kind: robot.PositionLH2, LH2: pos}, robot.LH2DistanceThreshold, robot.Distance) {
				fieldChanged = true
			}

		case protocol.ControlModeBody:
			mode := robot.ControlMode(body.Mode)
			if mode != r.Mode {
				r.Mode = mode
				categorical = true
			}

		case protocol.Lh2RawLocationBody, protocol.Lh2RawDataBody:
			// Debug-only; only last_seen is updated (spec.md §4.3 step 5).
		}

		r.LastSeen = now
	})

	switch {
	case created || categorical:
		c.publishReload(addr)
	case fieldChanged:
		c.publishUpdate(addr)
	}
}

// applyAdvertisementExtended implements the calibration hand-off (§4.4): an
// uncalibrated DotBot gets the artifact sent back before any position field
// in the same advertisement is honored.
func (c *Controller) applyAdvertisementExtended(r *robot.Record, ext protocol.AdvertisementExtended, fieldChanged *bool) {
	wasCalibrated := r.Calibrated
	r.Calibrated = ext.Calibrated

	if !ext.Calibrated {
		if c.calibration != nil {
			go func(addr robot.Address) {
				if err := c.send(context.Background(), addr, "calibration", protocol.Lh2CalibrationType, *c.calibration); err != nil {
					c.logger.Warn("failed to send calibration artifact", zap.Stringer("address", addr), zap.Error(err))
				}
			}(r.Address)
		}
		if wasCalibrated != ext.Calibrated {
			*fieldChanged = true
		}
		return
	}

	direction := ext.Direction
	r.Direction = &direction
	r.Battery = float64(ext.Battery)
	pos := robot.LH2Position{X: fromMicroUnits(ext.Position.PosX), Y: fromMicroUnits(ext.Position.PosY), Z: fromMicroUnits(ext.Position.PosZ)}
	r.LH2Position = &pos
	if r.TryAppendPosition(robot.Position{Kind: robot.PositionLH2, LH2: pos}, robot.LH2DistanceThreshold, robot.Distance) {
		*fieldChanged = true
	}
	if wasCalibrated != ext.Calibrated {
		*fieldChanged = true
	}
}

// StartSweep launches the periodic status sweep (spec.md §4.3): every
// period, derive each record's status from elapsed time and publish a
// single RELOAD if anything changed. It stops when ctx is cancelled.
func (c *Controller) StartSweep(ctx context.Context, period time.Duration) {
	c.sweepOnce.Do(func() {
		c.stopSweep = make(chan struct{})
		go func() {
			ticker := time.NewTicker(period)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-c.stopSweep:
					return
				case now := <-ticker.C:
					c.Sweep(now)
				}
			}
		}()
	})
}

// Sweep runs one status-sweep pass against now, publishing a single RELOAD
// if any record's status changed. Exposed directly (distinct from the
// ticker-driven loop StartSweep installs) so callers — including tests —
// can drive the sweep against a controlled clock.
func (c *Controller) Sweep(now time.Time) {
	if c.registry.Sweep(now) {
		c.hub.Publish(notify.Notification{Kind: notify.Reload})
	}
}

func fromMicroUnits(u uint32) float64   { return float64(u) / 1e6 }
func fromMicroDegrees(i int32) float64  { return float64(i) / 1e6 }
