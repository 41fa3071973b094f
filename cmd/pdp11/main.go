package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pdp11/assemble"
	"pdp11/config"
	"pdp11/cpu"
	"pdp11/disassemble"
	"pdp11/loader"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pdp11",
		Short: "A PDP-11 subset emulator",
	}

	var (
		configPath string
		startFlag  uint16
		traceFlag  bool
		dumpFlag   string
	)

	runCmd := &cobra.Command{
		Use:   "run <object-file>",
		Short: "Load an object file and execute it to HALT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(configPath, startFlag, traceFlag, cmd.Flags().Changed("start"))

			m := cpu.NewMachine()
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := loader.Load(f, m.Mem); err != nil {
				return err
			}
			m.Reg[7] = cfg.StartAddress

			err = m.Run(func(res cpu.StepResult) {
				if cfg.Trace {
					fmt.Println(disassemble.TraceLine(res))
				}
			})
			if err != nil {
				return err
			}
			fmt.Println("---------------- halted ---------------")
			fmt.Println(disassemble.RegisterDump(m.Reg))

			if dumpFlag != "" {
				addr, size, err := parseDumpRange(dumpFlag)
				if err != nil {
					return err
				}
				out, err := m.Mem.Dump(addr, size)
				if err != nil {
					return err
				}
				fmt.Print(out)
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML run-configuration file")
	runCmd.Flags().Uint16Var(&startFlag, "start", cpu.DefaultStartAddress, "start address (overrides config)")
	runCmd.Flags().BoolVar(&traceFlag, "trace", false, "print a trace line per instruction")
	runCmd.Flags().StringVar(&dumpFlag, "dump", "", "memory range to dump after HALT, as OCTAL-ADDR[:SIZE]")

	debugCmd := &cobra.Command{
		Use:   "debug <object-file>",
		Short: "Load an object file and step through it in an interactive TUI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(configPath, startFlag, traceFlag, cmd.Flags().Changed("start"))

			m := cpu.NewMachine()
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := loader.Load(f, m.Mem); err != nil {
				return err
			}
			m.Reg[7] = cfg.StartAddress

			return cpu.Debug(m)
		},
	}
	debugCmd.Flags().StringVar(&configPath, "config", "", "YAML run-configuration file")
	debugCmd.Flags().Uint16Var(&startFlag, "start", cpu.DefaultStartAddress, "start address (overrides config)")

	var asmOut string
	asmCmd := &cobra.Command{
		Use:   "asm <source-file>",
		Short: "Assemble a source listing into an object file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			out := os.Stdout
			if asmOut != "" {
				f, err := os.Create(asmOut)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return assemble.Assemble(src, out)
		},
	}
	asmCmd.Flags().StringVarP(&asmOut, "output", "o", "", "object-file path (default stdout)")

	rootCmd.AddCommand(runCmd, debugCmd, asmCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseDumpRange parses the --dump flag's "ADDR[:SIZE]" form: an octal word
// address and an optional decimal byte count (default one page of 32).
func parseDumpRange(s string) (uint16, int, error) {
	addrPart, sizePart, hasSize := strings.Cut(s, ":")
	addr, err := strconv.ParseUint(addrPart, 8, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("bad dump address %q: %w", addrPart, err)
	}
	size := 32
	if hasSize {
		n, err := strconv.Atoi(sizePart)
		if err != nil {
			return 0, 0, fmt.Errorf("bad dump size %q: %w", sizePart, err)
		}
		size = n
	}
	return uint16(addr), size, nil
}

// resolveConfig layers defaults, an optional config file, and explicit CLI
// flags, in that order of increasing precedence.
func resolveConfig(configPath string, start uint16, trace bool, startExplicit bool) config.Config {
	cfg := config.Default()
	if configPath != "" {
		if loaded, err := config.Load(configPath); err == nil {
			cfg = loaded
		} else {
			fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		}
	}
	if startExplicit {
		cfg.StartAddress = start
	}
	if trace {
		cfg.Trace = true
	}
	return cfg
}
