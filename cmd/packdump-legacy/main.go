// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Command packdump-legacy is a flag-based front-end over the same
// packfile engine cmd/packdump drives with cobra -- the toolkit carries
// both entrypoint textures the way the teacher's own pedumper.go/main.go
// pair does, not because the flag-based one adds capability.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/saferwall/packfile/internal/engine"
	"github.com/saferwall/packfile/internal/schema"
	"github.com/saferwall/packfile/log"
)

func newEngine(configDir, schemaPath string, verbose bool) (*engine.Engine, error) {
	minLevel := log.LevelError
	if verbose {
		minLevel = log.LevelInfo
	}
	logger := log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(minLevel))
	e, err := engine.New(engine.Options{ConfigDir: configDir, Logger: logger})
	if err != nil {
		return nil, err
	}
	if schemaPath != "" {
		sch, err := schema.Load(schemaPath, "")
		if err != nil {
			return nil, fmt.Errorf("loading schema: %w", err)
		}
		e.SetSchema(sch)
	} else {
		e.SetSchema(schema.New())
	}
	return e, nil
}

func main() {
	openCmd := flag.NewFlagSet("open", flag.ExitOnError)
	openConfigDir := openCmd.String("config-dir", ".packdump", "settings/cache directory")
	openSchema := openCmd.String("schema", "", "path to a schema TOML file")
	openVerbose := openCmd.Bool("verbose", false, "verbose output")

	extractCmd := flag.NewFlagSet("extract", flag.ExitOnError)
	extractConfigDir := extractCmd.String("config-dir", ".packdump", "settings/cache directory")
	extractDest := extractCmd.String("dest", ".", "destination directory")

	verCmd := flag.NewFlagSet("version", flag.ExitOnError)

	if len(os.Args) < 2 {
		showHelp()
	}

	switch os.Args[1] {
	case "open":
		openCmd.Parse(os.Args[2:])
		args := openCmd.Args()
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "usage: packdump-legacy open [flags] <pack>")
			os.Exit(1)
		}
		runOpen(*openConfigDir, *openSchema, *openVerbose, args[0])

	case "extract":
		extractCmd.Parse(os.Args[2:])
		args := extractCmd.Args()
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: packdump-legacy extract [flags] <pack> <path...>")
			os.Exit(1)
		}
		runExtract(*extractConfigDir, *extractDest, args[0], args[1:])

	case "version":
		verCmd.Parse(os.Args[2:])
		fmt.Println("packdump-legacy 1.0.0")

	default:
		showHelp()
	}
}

func runOpen(configDir, schemaPath string, verbose bool, packPath string) {
	e, err := newEngine(configDir, schemaPath, verbose)
	if err != nil {
		fatal(err)
	}
	stop := make(chan struct{})
	go e.Run(stop)
	defer close(stop)

	if resp := e.Do(engine.OpenPackFiles, []string{packPath}); resp.Err != nil {
		fatal(resp.Err)
	}
	resp := e.Do(engine.GetPackFileDataForTreeView, nil)
	if resp.Err != nil {
		fatal(resp.Err)
	}
	for _, p := range resp.Ok.([]string) {
		fmt.Println(p)
	}
}

func runExtract(configDir, dest, packPath string, paths []string) {
	e, err := newEngine(configDir, "", false)
	if err != nil {
		fatal(err)
	}
	stop := make(chan struct{})
	go e.Run(stop)
	defer close(stop)

	if resp := e.Do(engine.OpenPackFiles, []string{packPath}); resp.Err != nil {
		fatal(resp.Err)
	}
	resp := e.Do(engine.ExtractPackedFiles, engine.ExtractPackedFilesArgs{Paths: paths, Dest: dest})
	if resp.Err != nil {
		fatal(resp.Err)
	}
	for _, p := range resp.Ok.([]string) {
		fmt.Println("extracted", p)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func showHelp() {
	fmt.Print(`
packdump-legacy -- flag-based front-end over the packfile engine

Available subcommands: open, extract, version
`)
	os.Exit(1)
}
