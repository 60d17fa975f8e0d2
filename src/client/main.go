// SPDX-License-Identifier: MIT
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Grigoriy457/rocketry/src/client/tui"
)

// Build-time variables (set via -ldflags)
var (
	ProjectName = "rocketry"
	Version     = "dev"
	CommitID    = "unknown"
	BuildDate   = "unknown"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "base URL of the scheduler's inspection API")
	interval := flag.Duration("interval", 2*time.Second, "polling interval")
	light := flag.Bool("light", false, "use the light theme instead of dark")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (%s, built %s)\n", ProjectName, Version, CommitID, BuildDate)
		return
	}

	styles := tui.DefaultStyles()
	if *light {
		styles = tui.LightStyles()
	}

	client := tui.NewAPIClient(*addr)
	model := tui.New(client, *interval, styles)

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
