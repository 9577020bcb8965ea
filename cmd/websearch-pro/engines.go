// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/websearch-pro/internal/engines"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List available engines and the configured tier plan",
	RunE:  runEngines,
}

func init() {
	rootCmd.AddCommand(enginesCmd)
}

func runEngines(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	registry := engines.DefaultRegistry(httpClient(cfg), cfg.HTTP, loadedSecrets)

	fmt.Println("Available engines:")
	for _, name := range registry.Names() {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println()

	fmt.Println("Tier plan:")
	for i, tier := range tierPlan().Tiers {
		state := "enabled"
		if !tier.Enabled {
			state = "disabled"
		}
		fmt.Printf("  %d. %s (%s): %s, concurrency %d", i+1, tier.Name, state,
			strings.Join(tier.Engines, ", "), tier.Concurrency)
		if tier.Delay > 0 {
			fmt.Printf(", delay %s", tier.Delay)
		}
		if tier.Sequential {
			fmt.Print(", sequential")
		}
		fmt.Println()
	}
	return nil
}
