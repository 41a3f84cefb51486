// Command gateway is the fleet controller's process entry point: it loads
// configuration, builds the controller over a gateway link (serial or mock),
// brings up the HTTP/WebSocket/MQTT bindings, and waits for a stop signal to
// shut everything down in order.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dotbot-project/fleet-controller/internal/adapter"
	"github.com/dotbot-project/fleet-controller/internal/adapter/mock"
	"github.com/dotbot-project/fleet-controller/internal/audit"
	"github.com/dotbot-project/fleet-controller/internal/config"
	"github.com/dotbot-project/fleet-controller/internal/controller"
	"github.com/dotbot-project/fleet-controller/internal/httpapi"
	"github.com/dotbot-project/fleet-controller/internal/logging"
	"github.com/dotbot-project/fleet-controller/internal/mqttapi"
	"github.com/dotbot-project/fleet-controller/internal/wsapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level)
	defer logger.Sync()

	logger.Info("starting dotbot fleet controller",
		zap.String("http_addr", cfg.HTTP.ListenAddr),
		zap.String("ws_addr", cfg.WS.ListenAddr),
		zap.String("serial_port", cfg.Serial.Port),
	)

	cal, err := controller.LoadCalibration(cfg.Calibration.Path)
	if err != nil {
		logger.Warn("failed to load calibration artifact, continuing uncalibrated", zap.Error(err))
	} else if cal != nil {
		logger.Info("loaded calibration artifact", zap.Uint32("index", cal.Index))
	}

	auditSink, err := audit.New(cfg.Redis.URL, logger)
	if err != nil {
		logger.Warn("audit sink disabled", zap.Error(err))
		auditSink = nil
	}

	link, err := newLink(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build gateway link", zap.Error(err))
	}

	opts := []controller.Option{}
	if cal != nil {
		opts = append(opts, controller.WithCalibration(cal))
	}
	if auditSink != nil {
		opts = append(opts, controller.WithCommandRecorder(auditSink.RecordCommand))
	}
	ctrl := controller.New(link, logger, cfg.Swarm.ID, opts...)
	if auditSink != nil {
		ctrl.AddListener(auditSink.RecordTelemetry)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ctrl.Start(ctx); err != nil {
		logger.Fatal("failed to start controller", zap.Error(err))
	}

	wsServer := wsapi.New(ctrl, logger)
	go wsServer.Hub().Run()
	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/ws/status", wsServer.HandleStatus)
	wsHTTPServer := &http.Server{Addr: cfg.WS.ListenAddr, Handler: wsMux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("ws server listening", zap.String("addr", cfg.WS.ListenAddr))
		if err := wsHTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ws server failed", zap.Error(err))
		}
	}()

	httpServer := httpapi.New(cfg.HTTP.ListenAddr, ctrl, cfg.HTTP.RatePerMinute, logger)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", zap.Error(err))
		}
	}()

	var mqttBridge *mqttapi.Bridge
	if cfg.MQTT.BrokerURL != "" {
		mqttBridge = mqttapi.New(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID, ctrl, logger)
		if err := mqttBridge.Connect(); err != nil {
			logger.Warn("mqtt bridge failed to connect, continuing without it", zap.Error(err))
			mqttBridge = nil
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()

	if mqttBridge != nil {
		mqttBridge.Disconnect()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	if err := wsHTTPServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ws server shutdown error", zap.Error(err))
	}

	if err := ctrl.Close(); err != nil {
		logger.Error("controller close error", zap.Error(err))
	}
	if auditSink != nil {
		_ = auditSink.Close()
	}

	logger.Info("gateway stopped")
}

// newLink resolves the configured link kind ("serial" unless the port is
// empty or the literal "mock") through the adapter registry, so adding a new
// link kind later is a Register call rather than a change to main.
func newLink(cfg *config.Config, logger *zap.Logger) (adapter.Adapter, error) {
	registry := adapter.NewRegistry(logger)
	registry.Register("mock", func(*zap.Logger) (adapter.Adapter, error) {
		return mock.New(), nil
	})
	registry.Register("serial", func(l *zap.Logger) (adapter.Adapter, error) {
		return adapter.NewSerialAdapter(adapter.SerialConfig{
			PortName: cfg.Serial.Port,
			BaudRate: cfg.Serial.BaudRate,
		}, l)
	})

	kind := "serial"
	if cfg.Serial.Port == "" || cfg.Serial.Port == "mock" {
		kind = "mock"
	}
	logger.Info("selecting gateway link", zap.String("kind", kind))
	return registry.Build(kind)
}
