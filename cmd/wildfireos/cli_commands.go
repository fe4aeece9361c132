// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/WildfireOS/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "wildfireos",
	Short: "A CLI to run and manage the WildfireOS fire analysis service",
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
}

// newCLILogger builds the shared CLI logger: human-readable on a terminal,
// JSON when piped, always mirrored to the log directory.
func newCLILogger() *logging.Logger {
	return logging.New(logging.Config{
		Level:   logging.LevelInfo,
		LogDir:  "~/.wildfireos/logs",
		Service: "wildfireos",
		JSON:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
}
