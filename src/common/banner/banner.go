// SPDX-License-Identifier: MIT

// Package banner prints the scheduler daemon's startup banner, scaled
// to the size of the terminal it is running in.
package banner

import (
	"fmt"
	"strings"

	"github.com/Grigoriy457/rocketry/src/common/terminal"
)

// Config holds what the startup banner reports.
type Config struct {
	AppName string
	Version string
	Debug   bool
	// URLs is the inspection API's listen addresses, if enabled.
	URLs []string
	// TaskCount is the number of tasks registered at startup.
	TaskCount int
}

// Print prints the startup banner, choosing a layout from full
// ASCII-art down to a single line based on the terminal's size mode.
func Print(cfg Config) {
	size := terminal.GetTerminalSize()

	switch {
	case size.Mode >= terminal.SizeModeStandard:
		printFull(cfg)
	case size.Mode >= terminal.SizeModeCompact:
		printCompact(cfg)
	case size.Mode >= terminal.SizeModeMinimal:
		printMinimal(cfg)
	default:
		printMicro(cfg)
	}
}

func printFull(cfg Config) {
	for _, line := range GetASCIIArt(cfg.AppName) {
		fmt.Println(line)
	}
	fmt.Printf("%s %s v%s\n", terminal.RocketIcon(), cfg.AppName, cfg.Version)
	printModeLine(cfg.Debug, true)
	fmt.Printf("  %d task(s) registered\n", cfg.TaskCount)
	if len(cfg.URLs) > 0 {
		fmt.Println()
		for _, url := range cfg.URLs {
			fmt.Printf("  %s %s\n", terminal.GlobeIcon(), url)
		}
	}
	fmt.Println()
}

func printCompact(cfg Config) {
	fmt.Printf("%s %s v%s\n", terminal.RocketIcon(), cfg.AppName, cfg.Version)
	printModeLine(cfg.Debug, true)
	fmt.Printf("%d task(s) registered\n", cfg.TaskCount)
	for _, url := range cfg.URLs {
		fmt.Printf("%s %s\n", terminal.GlobeIcon(), url)
	}
}

func printMinimal(cfg Config) {
	fmt.Println(GetCompactHeader(cfg.AppName))
	fmt.Printf("%s v%s, %d task(s)\n", cfg.AppName, cfg.Version, cfg.TaskCount)
	for _, url := range cfg.URLs {
		fmt.Println(extractHostPort(url))
	}
}

func printMicro(cfg Config) {
	fmt.Println(GetMicroHeader(cfg.AppName))
	if len(cfg.URLs) > 0 {
		fmt.Println(extractHostPort(cfg.URLs[0]))
	}
}

func printModeLine(debug, useIcons bool) {
	mode := "production"
	if debug {
		mode = "debug"
	}
	if useIcons {
		icon := terminal.LockIcon()
		if debug {
			icon = terminal.BugIcon()
		}
		fmt.Printf("%s running in %s mode\n", icon, mode)
	} else {
		fmt.Printf("mode: %s\n", mode)
	}
}

// extractHostPort strips a URL's scheme and path, leaving host:port.
func extractHostPort(url string) string {
	s := url
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}
	if idx := strings.Index(s, "/"); idx >= 0 {
		s = s[:idx]
	}
	return s
}
