package controller

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dotbot-project/fleet-controller/internal/adapter/mock"
	"github.com/dotbot-project/fleet-controller/internal/notify"
	"github.com/dotbot-project/fleet-controller/internal/protocol"
	"github.com/dotbot-project/fleet-controller/internal/robot"
)

func newTestController(t *testing.T) (*Controller, *mock.Adapter) {
	t.Helper()
	link := mock.New()
	c := New(link, zap.NewNop(), "0000")
	if err := c.link.Start(context.Background(), c.HandleFrame); err != nil {
		t.Fatalf("start: %v", err)
	}
	return c, link
}

func TestUnknownRobotGuardRejectsOutboundCommand(t *testing.T) {
	c, link := newTestController(t)

	err := c.SendMoveRaw(context.Background(), robot.Address(0x4242), robot.MoveRawCommand{LeftX: -10, LeftY: -10, RightX: -10, RightY: -10})
	if _, ok := err.(*ErrUnknownDotBot); !ok {
		t.Fatalf("expected ErrUnknownDotBot, got %v", err)
	}
	if len(link.Sent()) != 0 {
		t.Fatalf("expected no frames written for an unknown destination")
	}
}

func TestAdvertisementAdmitsRobot(t *testing.T) {
	c, link := newTestController(t)

	frame := protocol.Frame{
		Header:      protocol.Header{Version: protocol.Version, Kind: protocol.KindData, Destination: uint64(robot.GatewayAddress), Source: 0x4242},
		PayloadType: protocol.AdvertisementType,
		Body:        protocol.AdvertisementBody{Application: uint8(robot.DotBot)},
	}
	link.Inject(frame)

	rec, ok := c.Get(robot.Address(0x4242))
	if !ok {
		t.Fatalf("expected a record to be created")
	}
	if rec.Status != robot.Active {
		t.Fatalf("expected Active status, got %v", rec.Status)
	}
	list := c.List(robot.Filter{})
	if len(list) != 1 || list[0].Address.String() != "0000000000004242" {
		t.Fatalf("expected one record addressed 0000000000004242, got %v", list)
	}
}

func TestNonAdvertisementFromUnknownSourceIsDropped(t *testing.T) {
	c, _ := newTestController(t)

	frame := protocol.Frame{
		Header:      protocol.Header{Version: protocol.Version, Kind: protocol.KindData, Source: 0x9999},
		PayloadType: protocol.ControlModeType,
		Body:        protocol.ControlModeBody{Mode: uint8(robot.Auto)},
	}
	var got []notify.Notification
	c.AddListener(func(n notify.Notification) { got = append(got, n) })

	c.HandleFrame(frame)

	if len(got) != 0 {
		t.Fatalf("expected no notification for a dropped frame, got %d", len(got))
	}

	if _, ok := c.Get(robot.Address(0x9999)); ok {
		t.Fatalf("expected no record to be created for a non-advertisement from an unknown source")
	}
}

func TestInactivitySweepTiming(t *testing.T) {
	c, link := newTestController(t)
	base := time.Now()

	link.Inject(protocol.Frame{
		Header:      protocol.Header{Version: protocol.Version, Source: 0x4242},
		PayloadType: protocol.AdvertisementType,
		Body:        protocol.AdvertisementBody{Application: uint8(robot.DotBot)},
	})

	c.Sweep(base)
	rec, _ := c.Get(robot.Address(0x4242))
	if rec.Status != robot.Active {
		t.Fatalf("expected Active immediately after admission, got %v", rec.Status)
	}

	c.Sweep(base.Add(6 * time.Second))
	rec, _ = c.Get(robot.Address(0x4242))
	if rec.Status != robot.Inactive {
		t.Fatalf("expected Inactive after 6s, got %v", rec.Status)
	}

	c.Sweep(base.Add(61 * time.Second))
	rec, _ = c.Get(robot.Address(0x4242))
	if rec.Status != robot.Lost {
		t.Fatalf("expected Lost after 61s, got %v", rec.Status)
	}
}

func TestPositionHistoryGating(t *testing.T) {
	c, link := newTestController(t)

	link.Inject(protocol.Frame{
		Header:      protocol.Header{Version: protocol.Version, Source: 0x4242},
		PayloadType: protocol.AdvertisementType,
		Body: protocol.AdvertisementBody{
			Application: uint8(robot.DotBot),
			Extended: &protocol.AdvertisementExtended{
				Calibrated: true,
				Position:   protocol.Lh2LocationBody{PosX: 500000, PosY: 500000},
			},
		},
	})
	link.Inject(protocol.Frame{
		Header:      protocol.Header{Version: protocol.Version, Source: 0x4242},
		PayloadType: protocol.AdvertisementType,
		Body: protocol.AdvertisementBody{
			Application: uint8(robot.DotBot),
			Extended: &protocol.AdvertisementExtended{
				Calibrated: true,
				Position:   protocol.Lh2LocationBody{PosX: 504000, PosY: 500000},
			},
		},
	})

	rec, _ := c.Get(robot.Address(0x4242))
	if len(rec.PositionHistory()) != 1 {
		t.Fatalf("expected exactly 1 stored sample (second within threshold rejected), got %d", len(rec.PositionHistory()))
	}
}
