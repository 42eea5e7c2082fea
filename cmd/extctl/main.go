// Command extctl drives a running simulated machine over the External
// Control protocol: advance simulated time, read and inject ADC values,
// observe and toggle GPIO pins, and access bus-addressed memory.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simforge/extctl/internal/client"
	"github.com/simforge/extctl/internal/config"
	"github.com/simforge/extctl/internal/logging"
)

var (
	flagConfig string
	flagHost   string
	flagPort   int
)

func main() {
	logging.ConfigureRuntime()

	root := &cobra.Command{
		Use:           "extctl",
		Short:         "drive a simulated machine over the External Control protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a TOML endpoint config")
	root.PersistentFlags().StringVar(&flagHost, "host", "", "server host (overrides config)")
	root.PersistentFlags().IntVar(&flagPort, "port", 0, "server port (overrides config)")

	root.AddCommand(
		getTimeCmd(),
		runForCmd(),
		machineCmd(),
		adcCmd(),
		gpioCmd(),
		busCmd(),
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("extctl failed")
		os.Exit(1)
	}
}

// dial resolves the endpoint config, connects and completes the handshake.
func dial(ctx context.Context) (*client.Client, error) {
	cfg := client.DefaultConfig()
	if flagConfig != "" {
		loaded, err := config.LoadClientConfig(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flagHost != "" {
		cfg.Host = flagHost
	}
	if flagPort != 0 {
		if flagPort < 1 || flagPort > 65535 {
			return nil, fmt.Errorf("port %d out of range", flagPort)
		}
		cfg.Port = uint16(flagPort)
	}

	c, err := client.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Handshake(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func getTimeCmd() *cobra.Command {
	var unitName string
	cmd := &cobra.Command{
		Use:   "get-time",
		Short: "read the current simulation time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := client.ParseTimeUnit(unitName)
			if err != nil {
				return err
			}
			c, err := dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			v, err := c.GetCurrentTime(unit)
			if err != nil {
				return err
			}
			fmt.Printf("%d %s\n", v, unit)
			return nil
		},
	}
	cmd.Flags().StringVar(&unitName, "unit", "us", "time unit: us, ms or s")
	return cmd
}

func runForCmd() *cobra.Command {
	var unitName string
	var async bool
	cmd := &cobra.Command{
		Use:   "run-for <duration>",
		Short: "advance simulated time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			duration, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse duration: %w", err)
			}
			unit, err := client.ParseTimeUnit(unitName)
			if err != nil {
				return err
			}
			c, err := dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if async {
				h := c.AsyncRunFor(duration, unit)
				log.Info().Str("run", h.ID()).Msg("run submitted")
				return h.Wait(cmd.Context())
			}
			return c.RunFor(duration, unit)
		},
	}
	cmd.Flags().StringVar(&unitName, "unit", "us", "time unit: us, ms or s")
	cmd.Flags().BoolVar(&async, "async", false, "submit the run on a background task and wait")
	return cmd
}

func machineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "machine get <name>",
		Short: "look a machine up by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "get" {
				return fmt.Errorf("unknown machine subcommand %q", args[0])
			}
			c, err := dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			m, err := c.GetMachine(args[1])
			if err != nil {
				return err
			}
			defer m.Release()
			fmt.Printf("machine %q descriptor=%d\n", m.Name(), m.Descriptor())
			return nil
		},
	}
	return cmd
}

// peripheralFlags attaches the machine + peripheral flags shared by adc/gpio/bus.
func peripheralFlags(cmd *cobra.Command, machineName, path *string) {
	cmd.PersistentFlags().StringVar(machineName, "machine", "", "machine name")
	cmd.PersistentFlags().StringVar(path, "path", "", "peripheral path")
	_ = cmd.MarkPersistentFlagRequired("machine")
	_ = cmd.MarkPersistentFlagRequired("path")
}

func adcCmd() *cobra.Command {
	var machineName, path string
	cmd := &cobra.Command{
		Use:   "adc <count|read|write> [channel] [value]",
		Short: "inspect or inject ADC channel values",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			m, err := c.GetMachine(machineName)
			if err != nil {
				return err
			}
			defer m.Release()
			adc, err := m.GetAdc(path)
			if err != nil {
				return err
			}

			switch args[0] {
			case "count":
				n, err := adc.ChannelCount()
				if err != nil {
					return err
				}
				fmt.Printf("%d channels\n", n)
				return nil
			case "read":
				if len(args) != 2 {
					return fmt.Errorf("usage: adc read <channel>")
				}
				ch, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("parse channel: %w", err)
				}
				v, err := adc.ChannelValue(ch)
				if err != nil {
					return err
				}
				fmt.Printf("channel %d = %g\n", ch, v)
				return nil
			case "write":
				if len(args) != 3 {
					return fmt.Errorf("usage: adc write <channel> <value>")
				}
				ch, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("parse channel: %w", err)
				}
				v, err := strconv.ParseFloat(args[2], 64)
				if err != nil {
					return fmt.Errorf("parse value: %w", err)
				}
				return adc.SetChannelValue(ch, v)
			default:
				return fmt.Errorf("unknown adc subcommand %q", args[0])
			}
		},
	}
	peripheralFlags(cmd, &machineName, &path)
	return cmd
}

func gpioCmd() *cobra.Command {
	var machineName, path string
	cmd := &cobra.Command{
		Use:   "gpio <get|set> <pin> [low|high]",
		Short: "observe or drive GPIO pins",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("parse pin: %w", err)
			}
			c, err := dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			m, err := c.GetMachine(machineName)
			if err != nil {
				return err
			}
			defer m.Release()
			gpio, err := m.GetGpio(path)
			if err != nil {
				return err
			}

			switch args[0] {
			case "get":
				state, err := gpio.State(pin)
				if err != nil {
					return err
				}
				fmt.Printf("pin %d = %s\n", pin, state)
				return nil
			case "set":
				if len(args) != 3 {
					return fmt.Errorf("usage: gpio set <pin> <low|high>")
				}
				var state client.GpioState
				switch args[2] {
				case "low", "0":
					state = client.GpioLow
				case "high", "1":
					state = client.GpioHigh
				default:
					return fmt.Errorf("unknown gpio level %q", args[2])
				}
				return gpio.SetState(pin, state)
			default:
				return fmt.Errorf("unknown gpio subcommand %q", args[0])
			}
		},
	}
	peripheralFlags(cmd, &machineName, &path)
	return cmd
}

func busCmd() *cobra.Command {
	var machineName, path, node, widthName string
	cmd := &cobra.Command{
		Use:   "bus <read|write> <address> [value]",
		Short: "width-qualified bus memory access",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := strconv.ParseUint(args[1], 0, 64)
			if err != nil {
				return fmt.Errorf("parse address: %w", err)
			}
			width, err := client.ParseAccessWidth(widthName)
			if err != nil {
				return err
			}

			c, err := dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			m, err := c.GetMachine(machineName)
			if err != nil {
				return err
			}
			defer m.Release()
			bus, err := m.GetSysBus(path)
			if err != nil {
				return err
			}
			bc, err := bus.GetBusContext(node)
			if err != nil {
				return err
			}

			switch args[0] {
			case "read":
				v, err := bc.Read(address, width)
				if err != nil {
					return err
				}
				fmt.Printf("0x%0*x\n", int(width)*2, v)
				return nil
			case "write":
				if len(args) != 3 {
					return fmt.Errorf("usage: bus write <address> <value>")
				}
				v, err := strconv.ParseUint(args[2], 0, 64)
				if err != nil {
					return fmt.Errorf("parse value: %w", err)
				}
				return bc.Write(address, width, v)
			default:
				return fmt.Errorf("unknown bus subcommand %q", args[0])
			}
		},
	}
	peripheralFlags(cmd, &machineName, &path)
	cmd.PersistentFlags().StringVar(&node, "node", "sysbus", "bus context node path")
	cmd.PersistentFlags().StringVar(&widthName, "width", "dword", "access width: byte, word, dword or qword")
	return cmd
}
