/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"log"
	"os"

	"keysound/internal/config"
	"keysound/pkg/spec"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *config.Config
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:     "keysound",
	Short:   "Mechanical keyboard click sounds for your terminal",
	Long:    `Open an interactive line where every key press plays a click from the selected switch profile. Samples are loaded from a directory, an HTTP base URL or a .ksb sound bank.`,
	Version: spec.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, cfgFile)
		return err
	},
	RunE:         runSession,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", config.DefaultFile(), "config file")
	pf.String("assets", "", "asset directory, http(s) base URL or .ksb bank")
	pf.String("ext", "", "sample file extension, e.g. .mp3 or .opx")
	pf.String("store", "", "preference store: file, sqlite or memory")
	pf.String("bank-key", "", "passphrase for sealed sound banks")
	pf.Int("workers", 0, "concurrent loads or encoders (0 = automatic)")

	for key, flag := range map[string]string{
		"assets":   "assets",
		"ext":      "ext",
		"store":    "store",
		"bank_key": "bank-key",
		"workers":  "workers",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// newLogger writes engine diagnostics in the [TAG] style used across the CLI.
func newLogger() *log.Logger {
	return log.New(os.Stderr, "", log.Ltime)
}
