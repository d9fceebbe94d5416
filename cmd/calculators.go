package main

import (
	"rc-physics-lab/internal/battery"
	"rc-physics-lab/internal/magnetic"
	"rc-physics-lab/internal/motor"
	"rc-physics-lab/internal/units"

	"github.com/spf13/cobra"
)

type calculation interface {
	Validate() error
}

// run validates req and prints compute() to the command's output.
func run(cmd *cobra.Command, req calculation, compute func() interface{}) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), compute())
}

func batteryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battery",
		Short: "Zinc/MnO2 cell chemistry and commercial pack calculations",
	}

	var mass battery.MassRequest
	massCmd := &cobra.Command{
		Use:   "mass",
		Short: "Charge and energy from reagent masses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &mass, func() interface{} { return mass.Calculate() })
		},
	}
	massCmd.Flags().Float64Var(&mass.ZincMass, "zinc", 1.0, "Zinc mass (g)")
	massCmd.Flags().Float64Var(&mass.ManganeseDioxideMass, "mno2", 2.0, "Manganese dioxide mass (g)")
	massCmd.Flags().Float64Var(&mass.Voltage, "voltage", 1.5, "Cell voltage (V)")
	massCmd.Flags().IntVar(&mass.ElectronsPerReaction, "electrons", 2, "Electrons per reaction")

	var capacity battery.CapacityRequest
	var preset string
	capacityCmd := &cobra.Command{
		Use:   "capacity",
		Short: "Pack voltage, charge and energy from a mAh rating",
		RunE: func(cmd *cobra.Command, args []string) error {
			if preset != "" {
				p, err := units.Battery(preset)
				if err != nil {
					return err
				}
				capacity.CapacityMah = p.CapacityMah
				capacity.CellVoltage = p.CellVoltage
			}
			return run(cmd, &capacity, func() interface{} { return capacity.Calculate() })
		},
	}
	capacityCmd.Flags().Float64Var(&capacity.CapacityMah, "mah", 2000, "Cell capacity (mAh)")
	capacityCmd.Flags().Float64Var(&capacity.CellVoltage, "cell-voltage", 1.5, "Cell voltage (V)")
	capacityCmd.Flags().IntVarP(&capacity.SeriesCount, "series", "s", 1, "Cells in series")
	capacityCmd.Flags().IntVarP(&capacity.ParallelCount, "parallel", "p", 1, "Cells in parallel")
	capacityCmd.Flags().StringVar(&preset, "preset", "", "Battery preset, overrides --mah and --cell-voltage")

	var loaded battery.LoadedVoltageRequest
	loadedCmd := &cobra.Command{
		Use:   "loaded",
		Short: "Terminal voltage under load",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, loaded, func() interface{} { return loaded.Calculate() })
		},
	}
	loadedCmd.Flags().Float64Var(&loaded.OpenCircuitVoltage, "ocv", 6.0, "Open circuit voltage (V)")
	loadedCmd.Flags().Float64VarP(&loaded.Current, "current", "i", 1.0, "Load current (A)")
	loadedCmd.Flags().Float64VarP(&loaded.InternalResistance, "resistance", "r", 1.2, "Internal resistance (Ω)")

	var runtime battery.RuntimeRequest
	runtimeCmd := &cobra.Command{
		Use:   "runtime",
		Short: "Runtime of a capacity at a constant current",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, runtime, func() interface{} { return runtime.Calculate() })
		},
	}
	runtimeCmd.Flags().Float64Var(&runtime.CapacityMah, "mah", 2000, "Capacity (mAh)")
	runtimeCmd.Flags().Float64VarP(&runtime.Current, "current", "i", 1.0, "Current (A)")

	cmd.AddCommand(massCmd, capacityCmd, loadedCmd, runtimeCmd)
	return cmd
}

func fieldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Magnetic flux density of simple geometries",
	}

	var solenoid magnetic.SolenoidRequest
	solenoidCmd := &cobra.Command{
		Use:   "solenoid",
		Short: "Field inside a long solenoid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, solenoid, func() interface{} { return solenoid.Calculate() })
		},
	}
	solenoidCmd.Flags().Float64VarP(&solenoid.Turns, "turns", "n", 50, "Number of turns")
	solenoidCmd.Flags().Float64VarP(&solenoid.Current, "current", "i", 1.0, "Current (A)")
	solenoidCmd.Flags().Float64VarP(&solenoid.Length, "length", "l", 0.02, "Coil length (m)")
	solenoidCmd.Flags().StringVarP(&solenoid.Material, "material", "m", "air", "Core material")

	var loop magnetic.LoopRequest
	loopCmd := &cobra.Command{
		Use:   "loop",
		Short: "Field at the centre of a flat coil",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, loop, func() interface{} { return loop.Calculate() })
		},
	}
	loopCmd.Flags().Float64VarP(&loop.Turns, "turns", "n", 1, "Number of turns")
	loopCmd.Flags().Float64VarP(&loop.Current, "current", "i", 1.0, "Current (A)")
	loopCmd.Flags().Float64VarP(&loop.Radius, "radius", "r", 0.01, "Loop radius (m)")

	var wire magnetic.WireRequest
	wireCmd := &cobra.Command{
		Use:   "wire",
		Short: "Field near a long straight wire",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, wire, func() interface{} { return wire.Calculate() })
		},
	}
	wireCmd.Flags().Float64VarP(&wire.Current, "current", "i", 1.0, "Current (A)")
	wireCmd.Flags().Float64VarP(&wire.Distance, "distance", "r", 0.01, "Distance from the wire (m)")

	cmd.AddCommand(solenoidCmd, loopCmd, wireCmd)
	return cmd
}

func motorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "motor",
		Short: "Loaded current and speed of small DC motors",
	}

	var current motor.CurrentRequest
	currentCmd := &cobra.Command{
		Use:   "current",
		Short: "Current drawn through the motor and the pack resistance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &current, func() interface{} { return current.Calculate() })
		},
	}
	currentCmd.Flags().Float64VarP(&current.SupplyVoltage, "voltage", "v", 6.0, "Supply voltage (V)")
	currentCmd.Flags().Float64Var(&current.MotorResistance, "motor-resistance", 1.2, "Motor resistance (Ω)")
	currentCmd.Flags().Float64Var(&current.InternalResistance, "internal-resistance", 0.1, "Pack internal resistance (Ω)")
	currentCmd.Flags().StringVar(&current.Preset, "preset", "", "Motor preset, overrides --motor-resistance")

	var speed motor.SpeedRequest
	var speedCurrent float64
	speedCmd := &cobra.Command{
		Use:   "speed",
		Short: "Estimated RPM of a motor preset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("current") {
				speed.Current = &speedCurrent
			}
			return run(cmd, speed, func() interface{} { return speed.Calculate() })
		},
	}
	speedCmd.Flags().StringVar(&speed.Preset, "preset", "280", "Motor preset")
	speedCmd.Flags().Float64VarP(&speed.SupplyVoltage, "voltage", "v", 6.0, "Supply voltage (V)")
	speedCmd.Flags().Float64VarP(&speedCurrent, "current", "i", 0, "Measured current (A), derived from the preset when unset")
	speedCmd.Flags().Float64Var(&speed.InternalResistance, "internal-resistance", 0.1, "Pack internal resistance (Ω)")

	cmd.AddCommand(currentCmd, speedCmd)
	return cmd
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List battery presets, motor presets and core materials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"batteries": units.BatteryPresets(),
				"motors":    units.MotorPresets(),
				"materials": units.Materials(),
			})
		},
	}
}
