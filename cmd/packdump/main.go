// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Command packdump is a CLI front-end over the packfile engine: open a
// pack, list its contents, print one file's metadata, extract files,
// optimize or create a pack, all driven through the same command channel
// a GUI front-end would use.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saferwall/packfile/internal/engine"
	"github.com/saferwall/packfile/internal/rfile"
	"github.com/saferwall/packfile/internal/schema"
	"github.com/saferwall/packfile/log"
)

var (
	verbose    bool
	configDir  string
	schemaPath string
)

func prettyPrint(v interface{}) string {
	buf, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(buf)
}

func newEngine() (*engine.Engine, error) {
	minLevel := log.LevelError
	if verbose {
		minLevel = log.LevelInfo
	}
	logger := log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(minLevel))
	e, err := engine.New(engine.Options{
		ConfigDir: configDir,
		Logger:    logger,
	})
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

func openCmdFunc(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	stop := make(chan struct{})
	go e.Run(stop)
	defer close(stop)

	resp := e.Do(engine.OpenPackFiles, args)
	if resp.Err != nil {
		return resp.Err
	}

	resp = e.Do(engine.GetPackFileDataForTreeView, nil)
	if resp.Err != nil {
		return resp.Err
	}
	for _, p := range resp.Ok.([]string) {
		fmt.Println(p)
	}
	return nil
}

func infoCmdFunc(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	stop := make(chan struct{})
	go e.Run(stop)
	defer close(stop)

	if resp := e.Do(engine.OpenPackFiles, []string{args[0]}); resp.Err != nil {
		return resp.Err
	}
	resp := e.Do(engine.GetRFileInfo, args[1])
	if resp.Err != nil {
		return resp.Err
	}
	fmt.Println(prettyPrint(resp.Ok.(*rfile.RFile)))
	return nil
}

func extractCmdFunc(cmd *cobra.Command, args []string) error {
	dest, _ := cmd.Flags().GetString("dest")
	e, err := newEngine()
	if err != nil {
		return err
	}
	stop := make(chan struct{})
	go e.Run(stop)
	defer close(stop)

	if resp := e.Do(engine.OpenPackFiles, []string{args[0]}); resp.Err != nil {
		return resp.Err
	}
	resp := e.Do(engine.ExtractPackedFiles, engine.ExtractPackedFilesArgs{
		Paths: args[1:],
		Dest:  dest,
	})
	if resp.Err != nil {
		return resp.Err
	}
	for _, p := range resp.Ok.([]string) {
		fmt.Println("extracted", p)
	}
	return nil
}

func optimizeCmdFunc(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	stop := make(chan struct{})
	go e.Run(stop)
	defer close(stop)

	if resp := e.Do(engine.OpenPackFiles, []string{args[0]}); resp.Err != nil {
		return resp.Err
	}
	resp := e.Do(engine.OptimizePackFile, engine.OptimizePackFileArgs{RemoveEmptyFiles: true})
	if resp.Err != nil {
		return resp.Err
	}
	if resp := e.Do(engine.SavePackFileAs, args[0]); resp.Err != nil {
		return resp.Err
	}
	fmt.Println("removed", resp.Ok)
	return nil
}

func newCmdFunc(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	stop := make(chan struct{})
	go e.Run(stop)
	defer close(stop)

	if resp := e.Do(engine.NewPackFile, nil); resp.Err != nil {
		return resp.Err
	}
	return e.Do(engine.SavePackFileAs, args[0]).Err
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "packdump",
		Short: "A PackFile modding-toolkit CLI",
		Long:  "Inspects, extracts, and optimizes Total War-style PackFile containers",
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".packdump", "settings/cache directory")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "path to a schema TOML file")

	openCmd := &cobra.Command{
		Use:   "open <pack>",
		Short: "List the files inside a pack",
		Args:  cobra.ExactArgs(1),
		RunE:  openCmdFunc,
	}

	infoCmd := &cobra.Command{
		Use:   "info <pack> <path>",
		Short: "Print an RFile's metadata as JSON",
		Args:  cobra.ExactArgs(2),
		RunE:  infoCmdFunc,
	}

	extractCmd := &cobra.Command{
		Use:   "extract <pack> <path...>",
		Short: "Extract one or more files to disk",
		Args:  cobra.MinimumNArgs(2),
		RunE:  extractCmdFunc,
	}
	extractCmd.Flags().String("dest", ".", "destination directory")

	optimizeCmd := &cobra.Command{
		Use:   "optimize <pack>",
		Short: "Strip empty files and save in place",
		Args:  cobra.ExactArgs(1),
		RunE:  optimizeCmdFunc,
	}

	newCmd := &cobra.Command{
		Use:   "new <pack>",
		Short: "Create an empty pack",
		Args:  cobra.ExactArgs(1),
		RunE:  newCmdFunc,
	}

	rootCmd.AddCommand(openCmd, infoCmd, extractCmd, optimizeCmd, newCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
