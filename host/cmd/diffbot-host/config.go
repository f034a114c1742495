package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"diffbot/config"
)

var packOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and convert controller configuration documents",
}

var configShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print a configuration (JSON or CBOR) as JSON, defaults applied",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigArg(args)
		if err != nil {
			return err
		}
		out, err := config.EncodeJSON(cfg)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var configPackCmd = &cobra.Command{
	Use:   "pack <file>",
	Short: "Validate a configuration and write it as compact CBOR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigArg(args)
		if err != nil {
			return err
		}
		out, err := config.EncodeCBOR(cfg)
		if err != nil {
			return err
		}
		if packOutput == "" || packOutput == "-" {
			_, err = os.Stdout.Write(out)
			return err
		}
		if err := os.WriteFile(packOutput, out, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(out), packOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configPackCmd)
	configPackCmd.Flags().StringVarP(&packOutput, "output", "o", "", "Output file (default stdout)")
}

// loadConfigArg loads the file named by args[0], or the built-in default
func loadConfigArg(args []string) (*config.Config, error) {
	if len(args) == 0 {
		return config.Default(), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", args[0], err)
	}
	return cfg, nil
}
