package main

import (
	"fmt"
	"math"

	"rc-physics-lab/internal/regulation"
	"rc-physics-lab/internal/session"
	"rc-physics-lab/internal/simulator"

	"github.com/spf13/cobra"
)

type simulateSummary struct {
	RunID      string                 `json:"run_id"`
	Duration   float64                `json:"duration"`
	Steps      int                    `json:"steps"`
	State      simulator.State        `json:"state"`
	Parameters simulator.Parameters   `json:"parameters"`
	Laps       []simulator.LapEvent   `json:"laps"`
	Cruise     map[string]interface{} `json:"cruise,omitempty"`
}

func simulateCmd() *cobra.Command {
	var (
		duration float64
		dt       float64
		throttle float64
		cruise   float64
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the simulation headless with a fixed time step and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration <= 0 || math.IsNaN(duration) {
				return fmt.Errorf("--duration must be > 0")
			}
			if dt <= 0 || dt > simulator.MaxStep {
				return fmt.Errorf("--dt must be in (0, %g]", simulator.MaxStep)
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			sim, err := simulator.New(cfg.Simulation.Parameters, simulator.TrackConfig{TrackLength: cfg.Simulation.TrackLength}, logger)
			if err != nil {
				return fmt.Errorf("simulator: %w", err)
			}
			regulator, err := regulation.CreateRegulator(regulation.RegulationType(cfg.Cruise.Type), cfg, logger)
			if err != nil {
				return fmt.Errorf("cruise regulator: %w", err)
			}
			manager := session.NewManager(cfg, sim, regulator, logger)

			var laps []simulator.LapEvent
			manager.SetLapCallback(func(lap session.LapRecord) {
				laps = append(laps, lap.LapEvent)
				if !quiet {
					fmt.Fprintf(cmd.ErrOrStderr(), "lap %3d  %7.3fs  best=%v  charge=%5.1f%%\n", lap.Lap, lap.LapTime, lap.IsBest, lap.BatteryCharge)
				}
			})

			if cmd.Flags().Changed("cruise") {
				if err := manager.EnableCruise(cruise); err != nil {
					return err
				}
			} else if err := manager.SetThrottle(throttle); err != nil {
				return err
			}

			manager.StartRun()
			steps := int(math.Round(duration / dt))
			for i := 0; i < steps; i++ {
				manager.Advance(dt)
			}
			manager.StopRun()

			state, params := sim.Snapshot()
			summary := simulateSummary{
				RunID:      manager.RunID(),
				Duration:   duration,
				Steps:      steps,
				State:      state,
				Parameters: params,
				Laps:       laps,
			}
			if cmd.Flags().Changed("cruise") {
				summary.Cruise = regulator.GetStatus()
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().Float64VarP(&duration, "duration", "d", 30, "Simulated seconds")
	cmd.Flags().Float64Var(&dt, "dt", 1.0/60, "Fixed time step in seconds")
	cmd.Flags().Float64VarP(&throttle, "throttle", "t", 0.6, "Manual throttle 0-1")
	cmd.Flags().Float64Var(&cruise, "cruise", 0, "Hold this speed (m/s) with the cruise regulator instead of a fixed throttle")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary")
	return cmd
}
