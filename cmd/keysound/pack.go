/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"keysound/internal/assets"
	"keysound/pkg/audioengine"
	"keysound/pkg/spec"

	"github.com/spf13/cobra"
)

var packFlags struct {
	src  string
	dst  string
	bank string
	key  string
}

var packCmd = &cobra.Command{
	Use:   "pack --src <wav tree> --dst <asset dir>",
	Short: "Encode a WAV sample tree into framed opus assets",
	Long: `Walk a tree laid out as {group}/press/GENERIC_R{n}.wav, encode every 48 kHz
WAV into framed opus (.opx) under the destination and write a manifest.json of
blake2b digests. --workers bounds the encoders (default one per CPU). With
--bank the samples are also written into a single .ksb sound bank, sealed when
--key is given.`,
	Args: cobra.NoArgs,
	RunE: runPack,
}

func init() {
	f := packCmd.Flags()
	f.StringVar(&packFlags.src, "src", "", "source directory of WAV samples")
	f.StringVar(&packFlags.dst, "dst", "", "destination asset directory")
	f.StringVar(&packFlags.bank, "bank", "", "also write a sound bank to this .ksb file")
	f.StringVar(&packFlags.key, "key", "", "passphrase sealing the sound bank")
	_ = packCmd.MarkFlagRequired("src")
	_ = packCmd.MarkFlagRequired("dst")
	rootCmd.AddCommand(packCmd)
}

type packOptions struct {
	Src, Dst string
	Bank     string
	Key      string
	Workers  int
	Out      io.Writer
}

type packResult struct {
	Files   int
	Failed  int
	Seconds float64
}

func runPack(cmd *cobra.Command, args []string) error {
	res, err := packTree(cmd.Context(), packOptions{
		Src:     packFlags.src,
		Dst:     packFlags.dst,
		Bank:    packFlags.bank,
		Key:     packFlags.key,
		Workers: cfg.Workers,
		Out:     cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[SUCCESS] %d samples, %.2fs of audio -> %s\n", res.Files, res.Seconds, packFlags.dst)
	return nil
}

// packTree encodes every WAV under Src. Single-file failures are reported and
// counted; the manifest and bank still cover every file that succeeded.
func packTree(ctx context.Context, opts packOptions) (packResult, error) {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Key != "" && opts.Bank == "" {
		return packResult{}, errors.New("--key needs --bank")
	}

	files, err := findWAVs(opts.Src)
	if err != nil {
		return packResult{}, err
	}
	if len(files) == 0 {
		return packResult{}, fmt.Errorf("no .wav files under %s", opts.Src)
	}
	if err := os.MkdirAll(opts.Dst, 0o755); err != nil {
		return packResult{}, err
	}

	var (
		bankFile *os.File
		bank     *assets.BankWriter
	)
	if opts.Bank != "" {
		bankFile, err = os.Create(opts.Bank)
		if err != nil {
			return packResult{}, err
		}
		defer bankFile.Close()
		name := strings.TrimSuffix(filepath.Base(opts.Bank), filepath.Ext(opts.Bank))
		bank, err = assets.NewBankWriter(bankFile, name, opts.Key)
		if err != nil {
			return packResult{}, fmt.Errorf("bank %s: %w", opts.Bank, err)
		}
	}

	fmt.Fprintf(opts.Out, "[PACK] %d WAV files, %d workers\n", len(files), opts.Workers)

	var (
		mu       sync.Mutex
		manifest = assets.Manifest{}
		res      = packResult{Files: len(files)}
		bar      = newProgress(opts.Out, "PACK", len(files))
		jobs     = make(chan wavFile, len(files))
		wg       sync.WaitGroup
	)
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for wf := range jobs {
				data, secs, err := packOne(ctx, opts, wf, bank)

				mu.Lock()
				if err != nil {
					res.Failed++
					fmt.Fprintf(opts.Out, "\n[FAIL] %s: %v\n", wf.Path, err)
				} else {
					manifest[wf.Rel+spec.OpusExt] = assets.Digest(data)
					res.Seconds += secs
				}
				bar.Add(1)
				mu.Unlock()
			}
		}()
	}
	for _, wf := range files {
		jobs <- wf
	}
	close(jobs)
	wg.Wait()

	if err := assets.WriteManifest(filepath.Join(opts.Dst, spec.ManifestFile), manifest); err != nil {
		return res, fmt.Errorf("manifest: %w", err)
	}
	if bank != nil {
		if err := bank.Close(); err != nil {
			return res, fmt.Errorf("bank %s: %w", opts.Bank, err)
		}
		if err := bankFile.Sync(); err != nil {
			return res, err
		}
	}
	if res.Failed > 0 {
		return res, fmt.Errorf("%d of %d samples failed", res.Failed, res.Files)
	}
	return res, nil
}

// packOne encodes one WAV to Dst/{rel}.opx and adds it to the bank.
func packOne(ctx context.Context, opts packOptions, wf wavFile, bank *assets.BankWriter) ([]byte, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	secs, err := audioengine.EncodeOpusFrames(wf.Path, &buf)
	if err != nil {
		return nil, 0, err
	}
	data := buf.Bytes()

	dst := filepath.Join(opts.Dst, filepath.FromSlash(wf.Rel)+spec.OpusExt)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, 0, err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return nil, 0, err
	}
	if bank != nil {
		if err := bank.Add(wf.Rel, data); err != nil {
			return nil, 0, err
		}
	}
	return data, secs, nil
}

type wavFile struct {
	Path string
	Rel  string // slash-separated, relative to the source root, no extension
}

func findWAVs(root string) ([]wavFile, error) {
	var out []wavFile
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".wav") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out = append(out, wavFile{Path: p, Rel: filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))})
		return nil
	})
	return out, err
}
