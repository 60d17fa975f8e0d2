// SPDX-License-Identifier: MIT
//go:build !windows

// Package signal wires OS signals to the scheduler daemon's shutdown
// and operational controls: SIGTERM/SIGINT/SIGQUIT (and Docker's
// SIGRTMIN+3 STOPSIGNAL) trigger graceful shutdown, SIGUSR1 reopens
// rotated log files, SIGUSR2 dumps scheduler status, and SIGHUP is
// ignored since configuration is reloaded by the scheduler's own
// cycle rather than a signal.
package signal

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var (
	shuttingDown bool
	logReopenFn  func()
	statusDumpFn func()
)

// SetLogReopenFunc sets the function called on SIGUSR1.
func SetLogReopenFunc(fn func()) {
	logReopenFn = fn
}

// SetStatusDumpFunc sets the function called on SIGUSR2.
func SetStatusDumpFunc(fn func()) {
	statusDumpFn = fn
}

// IsShuttingDown returns true if shutdown is in progress.
func IsShuttingDown() bool {
	return shuttingDown
}

// SetupSignalHandler wires graceful shutdown: the inspection API's
// http.Server is given 30s to drain in-flight requests, then cancel
// stops the scheduler's main loop. server may be nil when the
// inspection API is disabled.
func SetupSignalHandler(server *http.Server, cancel context.CancelFunc, pidFile string) {
	sigChan := make(chan os.Signal, 1)

	signal.Notify(sigChan,
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGUSR1,
		syscall.SIGUSR2,
	)

	// Docker's STOPSIGNAL, when set to SIGRTMIN+3.
	signal.Notify(sigChan, syscall.Signal(37))

	// Configuration is reloaded by the scheduler's own cycle, not a signal.
	signal.Ignore(syscall.SIGHUP)

	go func() {
		for sig := range sigChan {
			switch sig {
			case syscall.SIGUSR1:
				log.Println("received SIGUSR1, reopening logs")
				if logReopenFn != nil {
					logReopenFn()
				}

			case syscall.SIGUSR2:
				log.Println("received SIGUSR2, dumping scheduler status")
				if statusDumpFn != nil {
					statusDumpFn()
				}

			default:
				log.Printf("received %v, starting graceful shutdown", sig)
				gracefulShutdown(server, cancel, pidFile)
			}
		}
	}()
}

// WaitForShutdown blocks until a shutdown signal is received.
func WaitForShutdown(ctx context.Context) os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	signal.Notify(quit, syscall.Signal(37))
	signal.Ignore(syscall.SIGHUP)

	select {
	case sig := <-quit:
		return sig
	case <-ctx.Done():
		return syscall.SIGTERM
	}
}

// GetStopSignal returns the appropriate stop signal for this platform.
func GetStopSignal() os.Signal {
	return syscall.SIGTERM
}

// gracefulShutdown drains the inspection API, stops the scheduler's
// main loop, and removes the PID file before exiting.
func gracefulShutdown(server *http.Server, cancel context.CancelFunc, pidFile string) {
	shuttingDown = true

	ctx, done := context.WithTimeout(context.Background(), 30*time.Second)
	defer done()

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("inspection API shutdown error: %v", err)
		}
	}

	if cancel != nil {
		cancel()
	}

	if pidFile != "" {
		os.Remove(pidFile)
	}

	os.Exit(0)
}

// KillProcess sends a termination signal to pid: graceful via SIGTERM
// or immediate via SIGKILL.
func KillProcess(pid int, graceful bool) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if graceful {
		return process.Signal(syscall.SIGTERM)
	}
	return process.Signal(syscall.SIGKILL)
}

// isProcessRunning checks if a process with the given PID exists (Unix).
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds — send signal 0 to probe.
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// isOurProcess verifies the process at pid is actually this binary,
// by exact basename match against /proc/{pid}/exe (falling back to ps
// on platforms without /proc).
func isOurProcess(pid int, binaryName string) bool {
	exePath, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return isOurProcessDarwin(pid, binaryName)
	}
	return filepath.Base(exePath) == binaryName
}

func isOurProcessDarwin(pid int, binaryName string) bool {
	cmd := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "comm=")
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(output)) == binaryName
}

// CheckPIDFile reports whether pidPath names a still-running instance
// of binaryName, cleaning up a stale or corrupt PID file as it goes.
func CheckPIDFile(pidPath string, binaryName string) (bool, int, error) {
	data, err := os.ReadFile(pidPath)
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("reading pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		os.Remove(pidPath)
		return false, 0, nil
	}

	if !isProcessRunning(pid) {
		os.Remove(pidPath)
		return false, 0, nil
	}

	if !isOurProcess(pid, binaryName) {
		// PID was reused by another process.
		os.Remove(pidPath)
		return false, 0, nil
	}

	return true, pid, nil
}

// WritePIDFile writes the current process's PID to pidPath, refusing
// to overwrite a file that names an instance still running.
func WritePIDFile(pidPath string, binaryName string) error {
	running, existingPID, err := CheckPIDFile(pidPath, binaryName)
	if err != nil {
		return err
	}
	if running {
		return fmt.Errorf("already running (pid %d)", existingPID)
	}

	pidDir := filepath.Dir(pidPath)
	perm := os.FileMode(0755)
	if os.Getuid() != 0 {
		perm = 0700
	}
	if err := os.MkdirAll(pidDir, perm); err != nil {
		return fmt.Errorf("creating pid directory: %w", err)
	}

	pid := os.Getpid()
	filePerm := os.FileMode(0644)
	if os.Getuid() != 0 {
		filePerm = 0600
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(pid)), filePerm)
}

// RemovePIDFile removes the PID file on shutdown.
func RemovePIDFile(pidPath string) error {
	return os.Remove(pidPath)
}
