package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/bridge"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/config"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/metrics"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/rest"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/store"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/topicid"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/ws"
)

var (
	prometheusEnabled bool
	prometheusAddr    string
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Run the bridge and API server",
	Long:    `Connects to the upstream broker, starts the WebSocket fan-out and serves the dashboard API.`,
	RunE:    runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// The signal cancels ctx directly, so a SIGINT during the broker
	// connect backoff stops the retry loop instead of waiting for a
	// connection that may never come.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := buildLogger(logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	if prometheusEnabled {
		go metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{Addr: prometheusAddr})
	}

	broker, err := newBroker(cfg, logger)
	if err != nil {
		return err
	}
	if err := broker.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			log.Println("Interrupted while connecting to broker")
			return nil
		}
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer broker.Close()

	msgs, stopListening := broker.Listen()
	defer stopListening()

	hub := ws.NewHub(logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx, msgs)
	}()

	st := store.New()
	ids := topicid.NewGenerator()
	dashboards := store.NewDashboardService(st, ids, logger)
	tokens := store.NewTokenService(st, logger, 0)

	server := rest.NewServer(logger, broker, hub, st, dashboards, tokens)
	go func() {
		if err := server.ListenAndServe(cfg.Server.ListenAddr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		log.Println("Received termination signal, shutting down gracefully...")
	case err := <-errChan:
		log.Printf("Server error: %v", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Println("Shutdown complete")
	case <-time.After(10 * time.Second):
		log.Println("Shutdown timed out after 10 seconds")
	}

	return nil
}

// newBroker builds the configured upstream client. MQTT is the default;
// NATS is selected with broker.kind: nats.
func newBroker(cfg *config.Config, logger *zap.Logger) (bridge.Broker, error) {
	switch cfg.Broker.Kind {
	case "", "mqtt":
		m := cfg.Broker.MQTT
		return bridge.NewMQTT(bridge.MQTTOptions{
			Scheme:            m.Scheme,
			Host:              m.Host,
			Port:              m.Port,
			Username:          m.Username,
			Password:          m.Password,
			ClientID:          m.ClientID,
			Topics:            m.SubscribeTopics(),
			QoS:               byte(m.QoS),
			ConnectTimeout:    m.ConnectTimeout,
			ReconnectInterval: m.ReconnectInterval,
		}, logger), nil
	case "nats":
		n := cfg.Broker.NATS
		return bridge.NewNATS(bridge.NATSOptions{
			URL:           n.URL,
			Username:      n.Username,
			Password:      n.Password,
			Subjects:      n.SubscribeSubjects(),
			ReconnectWait: n.ReconnectWait,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported broker kind: %s", cfg.Broker.Kind)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	if level == "none" {
		return zap.NewNop(), nil
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func init() {
	serveCmd.Flags().BoolVar(&prometheusEnabled, "metrics", true, "Enable Prometheus metrics server")
	serveCmd.Flags().StringVar(&prometheusAddr, "metrics-addr", ":9100", "Prometheus metrics server address")

	err := viper.BindPFlag("metrics.enabled", serveCmd.Flags().Lookup("metrics"))
	if err != nil {
		log.Fatalf("Error binding flag 'metrics.enabled': %v", err)
	}

	err = viper.BindPFlag("metrics.addr", serveCmd.Flags().Lookup("metrics-addr"))
	if err != nil {
		log.Fatalf("Error binding flag 'metrics.addr': %v", err)
	}
}
