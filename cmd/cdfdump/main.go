// Copyright 2024 The cdf authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/spacephysics/cdf"
)

var (
	all        bool
	verbose    bool
	attributes bool
	variables  bool
	lazy       bool
	utf8       bool
)

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func dumpOne(path string) {
	log.Printf("processing %s", path)

	opts := cdf.Options{Lazy: lazy, UTF8Transcode: utf8}
	c, err := cdf.Open(path, opts)
	if err != nil {
		log.Printf("error opening %s: %s", path, err)
		return
	}
	defer c.Close()

	if all || attributes {
		printAttributes(c)
	}
	if all || variables {
		printVariables(c)
	}
	if verbose {
		for _, a := range c.Anomalies {
			fmt.Println("anomaly:", a)
		}
	}
}

func printAttributes(c *cdf.CDF) {
	tbl := table.New("name", "entries", "first type")
	for _, name := range c.Attributes() {
		attr, err := c.Attribute(name)
		if err != nil {
			continue
		}
		firstType := "-"
		if len(attr.Entries) > 0 {
			firstType = attr.Entries[0].Type.String()
		}
		tbl.AddRow(name, len(attr.Entries), firstType)
	}
	tbl.Print()
}

func printVariables(c *cdf.CDF) {
	tbl := table.New("name", "type", "shape", "records vary", "compression")
	for _, name := range c.Variables() {
		v, err := c.Variable(name)
		if err != nil {
			continue
		}
		vals, err := v.Get()
		if err != nil {
			log.Printf("error materializing %s: %s", name, err)
			continue
		}
		tbl.AddRow(name, vals.Type.String(), fmt.Sprint(v.Shape), v.RecordVariance, v.Compression.String())
	}
	tbl.Print()
}

func dump(cmd *cobra.Command, args []string) {
	path := args[0]
	if !isDirectory(path) {
		dumpOne(path)
		return
	}
	var files []string
	filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	for _, f := range files {
		dumpOne(f)
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "cdfdump",
		Short: "A Common Data Format file explorer",
		Long:  "Inspects the record graph, attributes, and variables of a CDF file",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("cdfdump 0.1.0")
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump [path]",
		Short: "Dumps the contents of a CDF file",
		Args:  cobra.MinimumNArgs(1),
		Run:   dump,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also print anomalies")
	dumpCmd.Flags().BoolVarP(&attributes, "attributes", "a", false, "list global attributes")
	dumpCmd.Flags().BoolVarP(&variables, "variables", "r", false, "list variables")
	dumpCmd.Flags().BoolVar(&lazy, "lazy", false, "defer variable materialization")
	dumpCmd.Flags().BoolVar(&utf8, "utf8", false, "transcode CDF_CHAR/CDF_UCHAR payloads from Latin-1")
	dumpCmd.Flags().BoolVar(&all, "all", true, "list both attributes and variables")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
