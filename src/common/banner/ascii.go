// SPDX-License-Identifier: MIT
package banner

import (
	"strings"
)

// GetASCIIArt returns ASCII art for the given app name: a dedicated
// logo for "rocketry", a generic boxed name for anything else.
func GetASCIIArt(appName string) []string {
	if strings.EqualFold(appName, "rocketry") {
		return rocketryArt
	}
	return generateSimpleArt(appName)
}

var rocketryArt = []string{
	"",
	"  ____            _        _              ",
	" |  _ \\ ___   ___| | _____| |_ _ __ _   _ ",
	" | |_) / _ \\ / __| |/ / _ \\ __| '__| | | |",
	" |  _ < (_) | (__|   <  __/ |_| |  | |_| |",
	" |_| \\_\\___/ \\___|_|\\_\\___|\\__|_|   \\__, |",
	"                                     |___/ ",
	"",
	"  Condition-driven task scheduler",
	"",
}

// generateSimpleArt generates a simple ASCII art header for any app name.
func generateSimpleArt(appName string) []string {
	upper := strings.ToUpper(appName)
	width := len(upper) + 4

	topBorder := "  ╔" + strings.Repeat("═", width) + "╗"
	midLine := "  ║  " + upper + "  ║"
	botBorder := "  ╚" + strings.Repeat("═", width) + "╝"

	return []string{
		"",
		topBorder,
		midLine,
		botBorder,
		"",
	}
}

// GetCompactHeader returns a compact header for smaller terminals.
func GetCompactHeader(appName string) string {
	return "=== " + strings.ToUpper(appName) + " ==="
}

// GetMicroHeader returns a minimal header.
func GetMicroHeader(appName string) string {
	return "[" + strings.ToUpper(appName) + "]"
}
