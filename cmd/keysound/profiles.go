/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"fmt"

	"keysound/internal/store"
	"keysound/pkg/keysound"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List switch profiles",
	Long:  `List every built-in switch profile. The saved selection is marked with *.`,
	Args:  cobra.NoArgs,
	RunE:  runProfiles,
}

var useCmd = &cobra.Command{
	Use:   "use <profile>",
	Short: "Save the profile used by the next session",
	Args:  cobra.ExactArgs(1),
	RunE:  runUse,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(useCmd)
}

// openPrefs builds a silent Sound over the configured store only.
func openPrefs() (*keysound.Sound, error) {
	st, err := store.Open(cfg.Store, cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store, err)
	}
	return keysound.New(keysound.Options{Store: st, Logger: newLogger()}), nil
}

func runProfiles(cmd *cobra.Command, args []string) error {
	sound, err := openPrefs()
	if err != nil {
		return err
	}
	defer sound.Close()

	writeProfiles(cmd.OutOrStdout(), sound.AvailableProfiles(), sound.CurrentProfile())
	return nil
}

func runUse(cmd *cobra.Command, args []string) error {
	sound, err := openPrefs()
	if err != nil {
		return err
	}
	defer sound.Close()

	if !sound.ChangeProfile(args[0]) {
		return fmt.Errorf("unknown profile %q (see keysound profiles)", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "profile: %s\n", args[0])
	return nil
}
