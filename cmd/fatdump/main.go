// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cuda-tools/fatbin"
)

var (
	extractPTX bool
	concat     bool
)

func describe(path string, c *fatbin.Container) string {
	var out bytes.Buffer
	fmt.Fprintf(&out, "%s: %d entries\n", path, len(c.Entries()))
	for i, e := range c.Entries() {
		kind := "ptx"
		if e.ContainsELF() {
			kind = "elf"
		}
		fmt.Fprintf(&out, "  [%d] kind=%s sm_%d v%d.%d host=%s producer=%s compressed=%v debug=%v digest=%016x\n",
			i, kind, e.SMArch(), e.VersionMajor(), e.VersionMinor(),
			e.Host(), e.Producer(), e.IsCompressed(), e.HasDebugInfo(), e.Digest())
		if id, ok := e.Identifier(); ok {
			fmt.Fprintf(&out, "      identifier=%q\n", id)
		}
		if opts, ok := e.PtxasOptions(); ok {
			fmt.Fprintf(&out, "      ptxas_options=%q\n", opts)
		}
	}
	for _, a := range c.Anomalies {
		fmt.Fprintf(&out, "  anomaly: %s\n", a)
	}
	return out.String()
}

func dumpOne(path string) (string, error) {
	c, err := fatbin.ReadFile(path, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	report := describe(path, c)

	if extractPTX {
		for i, e := range c.Entries() {
			if e.ContainsELF() {
				continue
			}
			payload, err := e.DecompressedPayload()
			if err != nil {
				return "", fmt.Errorf("%s: entry %d: %w", path, i, err)
			}
			base := filepath.Base(path)
			stem := base[:len(base)-len(filepath.Ext(base))]
			outPath := fmt.Sprintf("%s.%d.sm_%d.ptx", stem, i, e.SMArch())
			if err := os.WriteFile(outPath, payload, 0o644); err != nil {
				return "", fmt.Errorf("%s: writing %s: %w", path, outPath, err)
			}
		}
	}

	return report, nil
}

func runDump(cmd *cobra.Command, args []string) error {
	if concat {
		var combined fatbin.Container
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			r := bytes.NewReader(data)
			for r.Len() > 0 {
				c, err := fatbin.Read(r, nil)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				*combined.EntriesMut() = append(*combined.EntriesMut(), c.Entries()...)
			}
		}
		fmt.Print(describe("(concatenated)", &combined))
		return nil
	}

	reports := make([]string, len(args))
	g := new(errgroup.Group)
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			report, err := dumpOne(path)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, r := range reports {
		fmt.Print(r)
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "fatdump FILE [FILE...]",
		Short: "Inspect CUDA fatbinary container files",
		Long:  "fatdump parses one or more CUDA fatbinary container files and prints their entry headers.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDump,
	}

	rootCmd.Flags().BoolVar(&extractPTX, "extract-ptx", false, "write each PTX entry's decompressed payload to <stem>.<index>.sm_<arch>.ptx")
	rootCmd.Flags().BoolVar(&concat, "concat", false, "read every back-to-back container in each input and list all their entries as one")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("fatdump 0.1.0")
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
