// Package audit is an optional Redis Streams sink recording every inbound
// telemetry notification and outbound command dispatch, grounded on the
// teacher's bridge.RedisPublisher (XAdd + MaxLen + Approx idiom), retargeted
// from ROS2 sensor-data/velocity-command streams to the DotBot domain's
// telemetry/command traffic. It is an audit trail only — SPEC_FULL.md's
// Non-goal of "no persistence of robot state" stands; nothing here is read
// back to reconstruct the registry.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dotbot-project/fleet-controller/internal/notify"
	"github.com/dotbot-project/fleet-controller/internal/robot"
)

const (
	telemetryStream = "dotbot:telemetry"
	commandStream   = "dotbot:commands"
)

// Sink writes to Redis Streams. A nil *Sink is valid and every method on it
// is a no-op, so callers can construct it unconditionally and only wire it
// in when DOTBOT_REDIS_URL is configured.
type Sink struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to redisURL and pings it once before returning, matching the
// teacher's NewRedisPublisher. Returns (nil, nil) if redisURL is empty —
// the audit trail is optional (§11).
func New(redisURL string, logger *zap.Logger) (*Sink, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("audit: invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("audit: redis connection failed: %w", err)
	}
	logger.Info("audit sink connected to redis")
	return &Sink{client: client, logger: logger}, nil
}

// Close releases the underlying Redis connection.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}

// RecordTelemetry is a notify.Listener recording every controller
// notification to the telemetry stream.
func (s *Sink) RecordTelemetry(n notify.Notification) {
	if s == nil {
		return
	}
	payload, err := notify.EncodeJSON(n)
	if err != nil {
		s.logger.Error("audit: encode telemetry", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: telemetryStream,
		MaxLen: 100000,
		Approx: true,
		Values: map[string]interface{}{
			"address":   n.Address.String(),
			"kind":      n.Kind.String(),
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"payload":   string(payload),
		},
	}).Err()
	if err != nil {
		s.logger.Warn("audit: xadd telemetry failed", zap.Error(err))
	}
}

// RecordCommand records one outbound command dispatch against addr.
func (s *Sink) RecordCommand(ctx context.Context, addr robot.Address, verb string, body interface{}) {
	if s == nil {
		return
	}
	payload, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("audit: encode command", zap.Error(err))
		return
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: commandStream,
		MaxLen: 50000,
		Approx: true,
		Values: map[string]interface{}{
			"address":   addr.String(),
			"verb":      verb,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"payload":   string(payload),
		},
	}).Err()
	if err != nil {
		s.logger.Warn("audit: xadd command failed", zap.Error(err))
	}
}
