/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"fmt"
	"io"
	"time"

	"keysound/internal/assets"
	"keysound/internal/catalog"
	"keysound/pkg/audioengine"
	"keysound/pkg/keysound"

	"github.com/faiface/beep"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var inspectYAML bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [profile...]",
	Short: "Load samples offline and report their levels",
	Long: `Load every sample without opening the speaker and print per-variant
duration, peak, RMS, spectral centroid and how much of the sample would clip
at the loudest playback gain. With no arguments every profile is inspected.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectYAML, "yaml", false, "print the report as YAML")
	rootCmd.AddCommand(inspectCmd)
}

type variantReport struct {
	Variant  int     `yaml:"variant"`
	Loaded   bool    `yaml:"loaded"`
	Duration string  `yaml:"duration,omitempty"`
	Peak     float64 `yaml:"peak,omitempty"`
	RMS      float64 `yaml:"rms,omitempty"`
	Centroid float64 `yaml:"centroid_hz,omitempty"`
	Clip     float64 `yaml:"clip_ratio,omitempty"`
}

type profileReport struct {
	ID       string          `yaml:"id"`
	Name     string          `yaml:"name"`
	Variants []variantReport `yaml:"variants"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	fetcher, err := assets.Open(cfg.Assets, cfg.Ext, cfg.BankKey)
	if err != nil {
		return err
	}
	rate := beep.SampleRate(cfg.SampleRate)
	sound := keysound.New(keysound.Options{
		Fetcher: fetcher,
		NewContext: func() (audioengine.Context, error) {
			return audioengine.NewOfflineContext(rate), nil
		},
		SampleRate:   rate,
		Workers:      cfg.Workers,
		FetchTimeout: cfg.FetchTimeout,
		Ext:          cfg.Ext,
		BaseGain:     cfg.BaseGain,
		GainRange:    cfg.GainRange,
		Logger:       newLogger(),
	})
	defer sound.Close()

	profiles, err := selectProfiles(sound.AvailableProfiles(), args)
	if err != nil {
		return err
	}

	sound.Start(cmd.Context())
	sound.Wait()
	if err := cmd.Context().Err(); err != nil {
		return err
	}

	report := inspectProfiles(sound, profiles, cfg.BaseGain+cfg.GainRange)
	if inspectYAML {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(report)
	}
	writeInspect(cmd.OutOrStdout(), report)
	return nil
}

func selectProfiles(all []catalog.Profile, ids []string) ([]catalog.Profile, error) {
	if len(ids) == 0 {
		return all, nil
	}
	byID := make(map[string]catalog.Profile, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}
	out := make([]catalog.Profile, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown profile %q", id)
		}
		out = append(out, p)
	}
	return out, nil
}

func inspectProfiles(sound *keysound.Sound, profiles []catalog.Profile, maxGain float64) []profileReport {
	out := make([]profileReport, 0, len(profiles))
	for _, p := range profiles {
		pr := profileReport{ID: p.ID, Name: p.Name}
		for v := 0; v < p.Variants; v++ {
			vr := variantReport{Variant: v}
			if smp := sound.Sample(p.ID, v); smp != nil {
				st := audioengine.Analyze(smp.Buffer)
				vr.Loaded = true
				vr.Duration = st.Duration.Round(time.Millisecond).String()
				vr.Peak = st.Peak
				vr.RMS = st.RMS
				vr.Centroid = st.Centroid
				vr.Clip = audioengine.ClipRatio(smp.Buffer, maxGain)
			}
			pr.Variants = append(pr.Variants, vr)
		}
		out = append(out, pr)
	}
	return out
}

func writeInspect(w io.Writer, report []profileReport) {
	for _, pr := range report {
		fmt.Fprintf(w, "%s (%s)\n", pr.ID, pr.Name)
		for _, vr := range pr.Variants {
			if !vr.Loaded {
				fmt.Fprintf(w, "  R%d  -- not loaded\n", vr.Variant)
				continue
			}
			fmt.Fprintf(w, "  R%d  %8s  peak %.3f  rms %.3f  centroid %6.0f Hz  clip %5.1f%%\n",
				vr.Variant, vr.Duration, vr.Peak, vr.RMS, vr.Centroid, vr.Clip*100)
		}
	}
}
