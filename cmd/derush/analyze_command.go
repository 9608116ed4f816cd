package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"derush/internal/config"
	"derush/internal/pipeline"
	"derush/internal/plan"
	"derush/internal/plancache"
)

func newAnalyzeCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		jsonOutput       bool
		presetName       string
		edlPath          string
		noCache          bool
		silenceThreshold float64
		minSilence       float64
		sensitivity      string
		rhythmMode       string
	)

	cmd := &cobra.Command{
		Use:   "analyze <source>",
		Short: "Analyze a recording and emit its composition plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *base
			if presetName != "" {
				if err := config.ApplyPreset(&cfg, presetName); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("silence-threshold") {
				cfg.Analysis.SilenceThresholdDB = silenceThreshold
			}
			if cmd.Flags().Changed("min-silence") {
				cfg.Analysis.MinimumSilenceSeconds = minSilence
			}
			if cmd.Flags().Changed("sensitivity") {
				cfg.Analysis.SpeechSensitivity = strings.ToLower(sensitivity)
			}
			if cmd.Flags().Changed("rhythm") {
				cfg.Rhythm.Mode = strings.ToLower(rhythmMode)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := cmdCtx.ensureLogger()
			sourcePath := args[0]

			var cache *plancache.Store
			var fingerprint string
			if cfg.Cache.Enabled && !noCache {
				fingerprint, err = plancache.Fingerprint(sourcePath, &cfg)
				if err != nil {
					return err
				}
				cache, err = plancache.Open(cfg.Cache.Dir)
				if err != nil {
					return err
				}
				defer cache.Close()

				if cached, hit, cacheErr := cache.Get(ctx, fingerprint); cacheErr == nil && hit {
					return emit(cmd, cached, jsonOutput, edlPath, true)
				}
			}

			result, err := pipeline.New(&cfg, logger).Run(ctx, sourcePath)
			if err != nil {
				return err
			}
			if cache != nil {
				if putErr := cache.Put(ctx, fingerprint, result); putErr != nil {
					logger.Warn("caching plan failed", "error", putErr)
				}
			}
			return emit(cmd, result, jsonOutput, edlPath, false)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the full result as JSON")
	cmd.Flags().StringVar(&presetName, "preset", "", "Apply a named preset before analyzing")
	cmd.Flags().StringVar(&edlPath, "edl", "", "Also write a CMX3600-style EDL to this path")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the plan cache for this run")
	cmd.Flags().Float64Var(&silenceThreshold, "silence-threshold", 0, "Silence threshold in dBFS")
	cmd.Flags().Float64Var(&minSilence, "min-silence", 0, "Minimum silence duration in seconds")
	cmd.Flags().StringVar(&sensitivity, "sensitivity", "", "Speech sensitivity: low, medium, or high")
	cmd.Flags().StringVar(&rhythmMode, "rhythm", "", "Rhythm mode: disabled, moderate, or aggressive")

	return cmd
}

func emit(cmd *cobra.Command, result *plan.EditResult, jsonOutput bool, edlPath string, fromCache bool) error {
	if edlPath != "" {
		file, err := os.Create(edlPath)
		if err != nil {
			return fmt.Errorf("create EDL file: %w", err)
		}
		if err := result.Plan.WriteEDL(file, ""); err != nil {
			file.Close()
			return fmt.Errorf("write EDL: %w", err)
		}
		if err := file.Close(); err != nil {
			return err
		}
	}

	if jsonOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	out := cmd.OutOrStdout()
	if fromCache {
		fmt.Fprintln(out, "(cached plan)")
	}
	fmt.Fprintln(out, renderStatistics(result.Statistics))
	fmt.Fprintln(out, renderSegments(result.Plan))
	return nil
}

func renderStatistics(stats plan.EditStatistics) string {
	rows := [][]string{
		{"Original duration", formatDuration(stats.OriginalDuration)},
		{"Final duration", formatDuration(stats.FinalDuration)},
		{"Reduction", fmt.Sprintf("%.1f%%", stats.ReductionPercent)},
		{"Segments", fmt.Sprintf("%d", stats.SegmentCount)},
		{"Windows analyzed", fmt.Sprintf("%d", stats.WindowsAnalyzed)},
		{"Windows kept", fmt.Sprintf("%d", stats.WindowsKept)},
		{"Degraded windows", fmt.Sprintf("%d", stats.WindowsDegraded)},
		{"Mean quality", fmt.Sprintf("%.2f", stats.MeanQuality)},
		{"Processing time", stats.ProcessingTime.Round(time.Millisecond).String()},
	}
	return renderTable([]column{{title: "Statistic"}, {title: "Value", right: true}}, rows)
}

func renderSegments(p *plan.CompositionPlan) string {
	rows := make([][]string, 0, len(p.Segments))
	for i, seg := range p.Segments {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			formatDuration(seg.Start),
			formatDuration(seg.End),
			formatDuration(seg.Duration()),
			string(seg.Content),
			fmt.Sprintf("%.2f", seg.Quality),
		})
	}
	return renderTable([]column{
		{title: "#", right: true},
		{title: "Start", right: true},
		{title: "End", right: true},
		{title: "Duration", right: true},
		{title: "Content"},
		{title: "Quality", right: true},
	}, rows)
}

func formatDuration(d time.Duration) string {
	return d.Round(10 * time.Millisecond).String()
}
