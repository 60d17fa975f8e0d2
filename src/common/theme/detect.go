// SPDX-License-Identifier: MIT
package theme

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// DetectSystemDark detects whether the host is using a dark theme.
func DetectSystemDark() bool {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		return detectLinuxDark()
	case "darwin":
		return detectMacOSDark()
	case "windows":
		return detectWindowsDark()
	default:
		return true
	}
}

func detectLinuxDark() bool {
	if theme := os.Getenv("GTK_THEME"); theme != "" {
		return strings.Contains(strings.ToLower(theme), "dark")
	}

	cmd := exec.Command("gsettings", "get", "org.gnome.desktop.interface", "gtk-theme")
	if output, err := cmd.Output(); err == nil {
		return strings.Contains(strings.ToLower(string(output)), "dark")
	}

	if theme := os.Getenv("QT_QPA_PLATFORMTHEME"); theme != "" {
		return strings.Contains(strings.ToLower(theme), "dark")
	}

	if colorScheme := os.Getenv("COLOR_SCHEME"); colorScheme != "" {
		return strings.Contains(strings.ToLower(colorScheme), "dark")
	}

	return true
}

func detectMacOSDark() bool {
	cmd := exec.Command("defaults", "read", "-g", "AppleInterfaceStyle")
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(output)) == "Dark"
}

func detectWindowsDark() bool {
	// AppsUseLightTheme == 0 means dark mode.
	cmd := exec.Command("reg", "query",
		"HKEY_CURRENT_USER\\Software\\Microsoft\\Windows\\CurrentVersion\\Themes\\Personalize",
		"/v", "AppsUseLightTheme")
	output, err := cmd.Output()
	if err != nil {
		return true
	}
	return strings.Contains(string(output), "0x0")
}
