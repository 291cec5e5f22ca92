// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cuda-tools/fatbin"
)

// imageSpec is one --image flag occurrence: profile=sm_NN,file=PATH[,identifier=NAME][,ptxas-options=OPTS].
type imageSpec struct {
	profile      uint32
	file         string
	identifier   string
	ptxasOptions string
}

func parseImageSpec(s string) (imageSpec, error) {
	var spec imageSpec
	for _, field := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return spec, fmt.Errorf("malformed field %q, want key=value", field)
		}
		switch key {
		case "profile":
			value = strings.TrimPrefix(value, "sm_")
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return spec, fmt.Errorf("bad profile %q: %w", value, err)
			}
			spec.profile = uint32(n)
		case "file":
			spec.file = value
		case "identifier":
			spec.identifier = value
		case "ptxas-options":
			spec.ptxasOptions = value
		default:
			return spec, fmt.Errorf("unknown image field %q", key)
		}
	}
	if spec.file == "" {
		return spec, fmt.Errorf("image spec %q is missing file=", s)
	}
	return spec, nil
}

// imageFlags implements flag.Value so --image can repeat on the
// command line, the way distri's build tooling collects repeatable
// source-file flags.
type imageFlags []imageSpec

func (f *imageFlags) String() string {
	if f == nil {
		return ""
	}
	parts := make([]string, len(*f))
	for i, s := range *f {
		parts[i] = s.file
	}
	return strings.Join(parts, ",")
}

func (f *imageFlags) Set(value string) error {
	spec, err := parseImageSpec(value)
	if err != nil {
		return err
	}
	*f = append(*f, spec)
	return nil
}

func main() {
	var images imageFlags
	var outPath string

	fs := flag.NewFlagSet("fatcreate", flag.ExitOnError)
	fs.Var(&images, "image", "profile=sm_NN,file=PATH[,identifier=NAME][,ptxas-options=OPTS]; may be repeated")
	fs.StringVar(&outPath, "o", "a.fatbin", "output container path")
	fs.Parse(os.Args[1:])

	if len(images) == 0 {
		fmt.Fprintln(os.Stderr, "fatcreate: at least one -image flag is required")
		fs.PrintDefaults()
		os.Exit(1)
	}

	c := fatbin.New()
	for _, spec := range images {
		payload, err := os.ReadFile(spec.file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatcreate: reading %s: %v\n", spec.file, err)
			os.Exit(1)
		}

		e := fatbin.NewAuto(spec.profile, payload)
		if spec.identifier != "" {
			e.SetIdentifier(spec.identifier)
		}
		if spec.ptxasOptions != "" {
			e.SetPtxasOptions(spec.ptxasOptions)
		}
		*c.EntriesMut() = append(*c.EntriesMut(), e)
	}

	if err := c.SaveToFile(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatcreate: writing %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s with %d image(s)\n", outPath, len(images))
}
