// Package cli wires the gateway together behind a cobra command tree.
//
//	irrigation-gateway
//	├── serve                  # start the HTTP gateway (default)
//	└── model
//	    ├── sample --out PATH  # write a demonstration forest bundle
//	    └── inspect PATH       # load an artifact and print its schema
//
// serve reads its configuration from the environment (and .env).
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"irrigation-gateway/internal/api"
	"irrigation-gateway/internal/database"
	"irrigation-gateway/internal/metrics"
	"irrigation-gateway/internal/ml"
	"irrigation-gateway/internal/mqtt"
	"irrigation-gateway/internal/services"
	"irrigation-gateway/pkg/config"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

// BuildCLI builds the root command; running it without a subcommand serves
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "irrigation-gateway",
		Short: "Smart irrigation gateway: pump predictions and ESP32 pump control",
		Long: `irrigation-gateway classifies soil and weather readings with a
pre-trained model and forwards pump ON/OFF commands to an ESP32
over HTTP, MQTT or both.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	rootCmd.AddCommand(buildServeCommand())
	rootCmd.AddCommand(buildModelCommand())

	return rootCmd
}

func buildServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		Long:  "Start the gateway using configuration from the environment and .env",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func buildModelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Model artifact utilities",
	}
	cmd.AddCommand(buildSampleCommand())
	cmd.AddCommand(buildInspectCommand())
	return cmd
}

func buildSampleCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a sample forest model bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ml.WriteSampleModel(out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "model.json", "output path of the model bundle")

	return cmd
}

func buildInspectCommand() *cobra.Command {
	var featureOrder string

	cmd := &cobra.Command{
		Use:   "inspect PATH",
		Short: "Load a model artifact and print its schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectModel(cmd.OutOrStdout(), args[0], ml.ParseFeatureOrder(featureOrder))
		},
	}

	cmd.Flags().StringVar(&featureOrder, "feature-order", strings.Join(ml.DefaultFeatureOrder, ","),
		"feature order used when the artifact does not carry one")

	return cmd
}

func inspectModel(w io.Writer, path string, fallback []string) error {
	model, err := ml.Load(path, fallback)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Model:         %s\n", path)
	fmt.Fprintf(w, "Kind:          %s\n", model.Kind)
	fmt.Fprintf(w, "Artifact:      %s\n", model.Shape)
	fmt.Fprintf(w, "Probabilities: %v\n", model.SupportsProbability())
	fmt.Fprintf(w, "Features:      %s\n", strings.Join(model.Schema.Names(), ", "))
	return nil
}

func runServe() error {
	log.Printf("Starting irrigation gateway v%s...", version)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry, registry)

	predictor := loadPredictor(cfg)
	collector.SetModelLoaded(predictor.Ready())

	state := services.NewCommandState()
	channels, summary := buildChannels(cfg)
	dispatcher := services.NewDispatcher(cfg.PumpControlMode, channels, state,
		services.WithObserver(collector))
	guard := services.NewGuard(cfg.ControlAPIKey)
	summary.APIKeyRequired = guard.Required()

	opts := api.Options{
		Predictor:      predictor,
		Dispatcher:     dispatcher,
		State:          state,
		Guard:          guard,
		ModelPath:      cfg.ModelPath,
		PumpControl:    summary,
		Observer:       collector,
		MetricsHandler: collector.Handler(),
	}

	if cfg.ClickHouseAddr != "" {
		db, err := database.NewClickHouseDB(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
		if err != nil {
			log.Printf("Warning: prediction log disabled: %v", err)
		} else {
			defer db.Close()
			opts.Recorder = db
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(opts).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logStartup(cfg, predictor)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	log.Println("Shutdown complete. Goodbye!")
	return nil
}

// loadPredictor loads the model artifact. A failed load is kept on the
// predictor so the server still starts and reports it.
func loadPredictor(cfg *config.Config) *ml.Predictor {
	model, err := ml.Load(cfg.ModelPath, cfg.FeatureOrder)
	if err != nil {
		log.Printf("Warning: model not loaded: %v", err)
		return ml.NewPredictor(nil, err, nil)
	}
	return ml.NewPredictor(model, nil, nil)
}

// buildChannels creates the delivery channels of the configured mode, http first
func buildChannels(cfg *config.Config) ([]services.Channel, api.PumpControlSummary) {
	summary := api.PumpControlSummary{Mode: cfg.PumpControlMode}
	var channels []services.Channel

	if cfg.UsesHTTP() {
		url := cfg.ESP32ControlURL
		summary.HTTPURL = &url
		channels = append(channels, services.NewHTTPChannel(url, cfg.HTTPTimeout()))
	}

	if cfg.UsesMQTT() {
		publisher := mqtt.NewPublisher(mqtt.PublisherConfig{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			Topic:    cfg.MQTTTopic,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			QoS:      1,
			Timeout:  cfg.PublishTimeout(),
		})
		if cfg.MQTTHost == "" {
			log.Printf("Warning: PUMP_CONTROL_MODE=%s but MQTT_HOST is not set", cfg.PumpControlMode)
		} else {
			host := cfg.MQTTHost
			summary.MQTTHost = &host
		}
		topic := cfg.MQTTTopic
		summary.MQTTTopic = &topic
		channels = append(channels, services.NewMQTTChannel(publisher))
	}

	return channels, summary
}

func logStartup(cfg *config.Config, predictor *ml.Predictor) {
	log.Println("=== Irrigation gateway is running ===")
	log.Printf("Model loaded: %v", predictor.Ready())
	log.Printf("Pump control mode: %s", cfg.PumpControlMode)
	if cfg.UsesHTTP() {
		log.Printf("  - ESP32 URL:  %s (timeout %v)", cfg.ESP32ControlURL, cfg.HTTPTimeout())
	}
	if cfg.UsesMQTT() {
		log.Printf("  - MQTT:       %s:%d topic %s (timeout %v)", cfg.MQTTHost, cfg.MQTTPort, cfg.MQTTTopic, cfg.PublishTimeout())
	}
	log.Printf("API key required: %v", cfg.ControlAPIKey != "")
	log.Println("Press Ctrl+C to exit...")
}
