package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"derush/internal/config"
)

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List built-in analysis presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, 3)
			for _, name := range config.PresetNames() {
				cfg := config.Default()
				if err := config.ApplyPreset(&cfg, name); err != nil {
					return err
				}
				rows = append(rows, []string{
					name,
					fmt.Sprintf("%.0f dB", cfg.Analysis.SilenceThresholdDB),
					fmt.Sprintf("%.1fs", cfg.Analysis.MinimumSilenceSeconds),
					cfg.Analysis.SpeechSensitivity,
					cfg.Rhythm.Mode,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
				{title: "Preset"},
				{title: "Silence", right: true},
				{title: "Min silence", right: true},
				{title: "Sensitivity"},
				{title: "Rhythm"},
			}, rows))
			return nil
		},
	}
}
