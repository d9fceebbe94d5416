package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"rc-physics-lab/internal/api"
	"rc-physics-lab/internal/models"
	"rc-physics-lab/internal/mqtt"
	"rc-physics-lab/internal/regulation"
	"rc-physics-lab/internal/session"
	"rc-physics-lab/internal/simulator"
	"rc-physics-lab/internal/store"
	"rc-physics-lab/internal/stream"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var noStore bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation with the REST API, websocket stream and MQTT bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			logger.Infof("Starting rclab with config: %+v", cfg.Simulation)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sim, err := simulator.New(cfg.Simulation.Parameters, simulator.TrackConfig{TrackLength: cfg.Simulation.TrackLength}, logger)
			if err != nil {
				return fmt.Errorf("simulator: %w", err)
			}

			regulator, err := regulation.CreateRegulator(regulation.RegulationType(cfg.Cruise.Type), cfg, logger)
			if err != nil {
				return fmt.Errorf("cruise regulator: %w", err)
			}

			manager := session.NewManager(cfg, sim, regulator, logger)

			var st *store.Service
			if !noStore && cfg.Store.Path != "" {
				st, err = store.NewService(cfg.Store.Path, logger)
				if err != nil {
					return err
				}
				defer st.Close()
			}

			hub := stream.NewHub(logger)
			hub.SetMessageCallback(func(clientID string, message []byte) []byte {
				if err := manager.HandleControl(message); err != nil {
					logger.Warnf("Stream: control from %s rejected: %v", clientID, err)
					reply, _ := json.Marshal(map[string]string{"error": err.Error()})
					return reply
				}
				return nil
			})

			var mqttClient *mqtt.Client
			if cfg.MQTT.Enabled() {
				mqttClient, err = mqtt.NewClient(cfg, logger)
				if err != nil {
					return err
				}
				mqttClient.SetCallbacks(
					func(throttle float64) {
						if err := manager.SetThrottle(throttle); err != nil {
							logger.Warnf("MQTT: throttle %.3f rejected: %v", throttle, err)
						}
					},
					func(command session.Command) {
						if err := manager.HandleCommand(command); err != nil {
							logger.Warnf("MQTT: command %q rejected: %v", command, err)
						}
					},
				)
			} else {
				logger.Info("MQTT broker not configured, bridge disabled")
			}

			manager.SetFrameCallback(func(frame models.Frame) {
				hub.Broadcast(frame)
				if mqttClient != nil {
					mqttClient.PublishFrame(frame)
				}
			})

			manager.SetLapCallback(func(lap session.LapRecord) {
				if st != nil {
					if err := st.SaveLap(lap); err != nil {
						logger.Errorf("Failed to save lap: %v", err)
					}
				}
				if mqttClient != nil {
					mqttClient.PublishLap(lap)
				}
			})

			server := api.NewServer(cfg, manager, st, hub, logger)

			var wg sync.WaitGroup

			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := server.Start(ctx); err != nil {
					logger.Errorf("HTTP server error: %v", err)
					cancel()
				}
			}()

			wg.Add(1)
			go func() {
				defer wg.Done()
				manager.Start(ctx)
			}()

			if mqttClient != nil {
				if err := mqttClient.Connect(); err != nil {
					logger.Errorf("MQTT unavailable: %v", err)
				}
				defer mqttClient.Disconnect()
			}

			logger.Info("All services started successfully")

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-sigChan:
				logger.Info("Received shutdown signal")
			case <-ctx.Done():
				logger.Info("Context cancelled")
			}

			logger.Info("Shutting down...")
			cancel()

			server.Stop()

			wg.Wait()
			logger.Info("Shutdown complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not persist laps and settings")
	return cmd
}
