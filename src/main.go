// SPDX-License-Identifier: MIT
// Rocketry - condition-driven task scheduler daemon
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Grigoriy457/rocketry/src/common/banner"
	"github.com/Grigoriy457/rocketry/src/common/version"
	"github.com/Grigoriy457/rocketry/src/dictconfig"
	"github.com/Grigoriy457/rocketry/src/history"
	"github.com/Grigoriy457/rocketry/src/httpapi"
	"github.com/Grigoriy457/rocketry/src/logging"
	"github.com/Grigoriy457/rocketry/src/scheduler"
	"github.com/Grigoriy457/rocketry/src/signal"
	"github.com/Grigoriy457/rocketry/src/task"
)

// Build info, set via -ldflags at build time.
var (
	Version   = "dev"
	CommitID  = "unknown"
	BuildDate = "unknown"
)

func init() {
	version.Version = Version
	version.CommitID = CommitID
	version.BuildTime = BuildDate
}

func main() {
	args := os.Args[1:]

	var (
		configPath string
		pidFile    string
		address    string
		debug      bool
		logFile    string
		logJSON    bool
		logLevel   string
		historyDSN string
		noAPI      bool
	)

	i := 0
	for i < len(args) {
		arg := args[i]
		switch arg {
		case "--help", "-h":
			printHelp()
			os.Exit(0)

		case "--version", "-v":
			fmt.Println(version.GetFull())
			os.Exit(0)

		case "--status":
			os.Exit(checkStatus(pidFileOrDefault(pidFile)))

		case "--config":
			if i+1 < len(args) {
				i++
				configPath = args[i]
			}

		case "--pid":
			if i+1 < len(args) {
				i++
				pidFile = args[i]
			}

		case "--address":
			if i+1 < len(args) {
				i++
				address = args[i]
			}

		case "--no-api":
			noAPI = true

		case "--debug":
			debug = true

		case "--log-file":
			if i+1 < len(args) {
				i++
				logFile = args[i]
			}

		case "--log-json":
			logJSON = true

		case "--log-level":
			if i+1 < len(args) {
				i++
				logLevel = args[i]
			}

		case "--history":
			if i+1 < len(args) {
				i++
				historyDSN = args[i]
			}

		case "--stop":
			pf := pidFileOrDefault(pidFile)
			os.Exit(stopRunning(pf))

		default:
			switch {
			case strings.HasPrefix(arg, "--config="):
				configPath = strings.TrimPrefix(arg, "--config=")
			case strings.HasPrefix(arg, "--pid="):
				pidFile = strings.TrimPrefix(arg, "--pid=")
			case strings.HasPrefix(arg, "--address="):
				address = strings.TrimPrefix(arg, "--address=")
			case strings.HasPrefix(arg, "--log-file="):
				logFile = strings.TrimPrefix(arg, "--log-file=")
			case strings.HasPrefix(arg, "--log-level="):
				logLevel = strings.TrimPrefix(arg, "--log-level=")
			case strings.HasPrefix(arg, "--history="):
				historyDSN = strings.TrimPrefix(arg, "--history=")
			default:
				fmt.Fprintf(os.Stderr, "unrecognized flag: %s\n", arg)
				os.Exit(2)
			}
		}
		i++
	}

	if configPath == "" && os.Getenv("ROCKETRY_CONFIG") != "" {
		configPath = os.Getenv("ROCKETRY_CONFIG")
	}
	if address == "" && os.Getenv("ROCKETRY_ADDRESS") != "" {
		address = os.Getenv("ROCKETRY_ADDRESS")
	}
	if historyDSN == "" && os.Getenv("ROCKETRY_HISTORY") != "" {
		historyDSN = os.Getenv("ROCKETRY_HISTORY")
	}
	if pidFile == "" {
		pidFile = os.Getenv("ROCKETRY_PID_FILE")
	}
	if address == "" {
		address = ":8080"
	}
	if logLevel == "" {
		if debug {
			logLevel = "debug"
		} else {
			logLevel = "info"
		}
	}

	logger, logCloser, err := logging.New(logging.Config{
		Level: logLevel,
		JSON:  logJSON,
		File:  logFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if pidFile != "" {
		binaryName := "rocketry"
		if running, pid, _ := signal.CheckPIDFile(pidFile, binaryName); running {
			fmt.Fprintf(os.Stderr, "rocketry is already running (pid %d)\n", pid)
			os.Exit(1)
		}
		if err := signal.WritePIDFile(pidFile, binaryName); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write pid file: %v\n", err)
		}
	}

	if configPath == "" {
		fmt.Fprintln(os.Stderr, "no --config given; nothing to schedule")
		os.Exit(2)
	}

	sched, err := dictconfig.Load(configPath, map[string]task.Func{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if sched == nil {
		fmt.Fprintf(os.Stderr, "%s declares nothing to schedule\n", configPath)
		os.Exit(2)
	}
	sched.Session.Logger = logger
	sched.Session.Config.Debug = sched.Session.Config.Debug || debug

	if historyDSN != "" {
		store, err := openHistory(historyDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open history store: %v\n", err)
			os.Exit(1)
		}
		sched.Session.History = store
		defer store.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())

	var apiServer *http.Server
	if !noAPI {
		apiServer = &http.Server{
			Addr:    address,
			Handler: httpapi.New(sched).Handler(),
		}
		go func() {
			if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("inspection api stopped", "error", err)
			}
		}()
	}

	signal.SetupSignalHandler(apiServer, cancel, pidFile)
	if rf, ok := logCloser.(interface{ Reopen() error }); ok {
		signal.SetLogReopenFunc(func() {
			if err := rf.Reopen(); err != nil {
				logger.Error("failed to reopen log file", "error", err)
			}
		})
	}
	signal.SetStatusDumpFunc(func() {
		for _, t := range sched.Tasks() {
			logger.Info("task status", "name", t.Name(), "running", t.IsRunning(), "disabled", t.Disabled)
		}
	})

	banner.Print(banner.Config{
		AppName:   "rocketry",
		Version:   version.GetVersion(),
		Debug:     sched.Session.Config.Debug,
		URLs:      apiURLs(noAPI, address),
		TaskCount: len(sched.Tasks()),
	})

	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler stopped with error", "error", err)
		cleanupPID(pidFile)
		os.Exit(1)
	}

	cleanupPID(pidFile)
}

func apiURLs(noAPI bool, address string) []string {
	if noAPI {
		return nil
	}
	host := address
	if strings.HasPrefix(address, ":") {
		host = "localhost" + address
	}
	return []string{"http://" + host}
}

func cleanupPID(pidFile string) {
	if pidFile != "" {
		_ = signal.RemovePIDFile(pidFile)
	}
}

func pidFileOrDefault(pidFile string) string {
	if pidFile != "" {
		return pidFile
	}
	if env := os.Getenv("ROCKETRY_PID_FILE"); env != "" {
		return env
	}
	return "/var/run/rocketry.pid"
}

// checkStatus reports whether a rocketry daemon owns pidFile, printing
// a human-readable line and returning the process's exit code
// (0 = running, 1 = not running).
func checkStatus(pidFile string) int {
	running, pid, err := signal.CheckPIDFile(pidFile, "rocketry")
	if err != nil {
		fmt.Fprintf(os.Stderr, "status check failed: %v\n", err)
		return 1
	}
	if running {
		fmt.Printf("rocketry is running (pid %d)\n", pid)
		return 0
	}
	fmt.Println("rocketry is not running")
	return 1
}

// stopRunning sends a graceful termination signal to the daemon
// recorded in pidFile.
func stopRunning(pidFile string) int {
	running, pid, err := signal.CheckPIDFile(pidFile, "rocketry")
	if err != nil || !running {
		fmt.Fprintln(os.Stderr, "rocketry is not running")
		return 1
	}
	if err := signal.KillProcess(pid, true); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop rocketry: %v\n", err)
		return 1
	}
	fmt.Printf("sent shutdown signal to pid %d\n", pid)
	return 0
}

// openHistory opens an event history backend from a DSN of the form
// "driver:connection", e.g. "sqlite:/var/lib/rocketry/history.db",
// "redis:localhost:6379/0", "postgres:postgres://...".
func openHistory(dsn string) (history.Store, error) {
	driver, conn, ok := strings.Cut(dsn, ":")
	if !ok {
		return nil, fmt.Errorf("malformed history dsn %q, want driver:connection", dsn)
	}
	switch driver {
	case "sqlite":
		return history.OpenSQLite(conn)
	case "postgres":
		return history.OpenPostgres(conn)
	case "mysql":
		return history.OpenMySQL(conn)
	case "redis":
		addr, dbStr, _ := strings.Cut(conn, "/")
		db := 0
		if dbStr != "" {
			if n, err := strconv.Atoi(dbStr); err == nil {
				db = n
			}
		}
		return history.OpenRedis(addr, "", db, "rocketry"), nil
	case "memory":
		return history.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}
}

func printHelp() {
	fmt.Printf(`rocketry %s - condition-driven task scheduler

Usage: rocketry --config FILE [options]

Options:
  --config PATH        dict-config YAML file to load (required)
  --address ADDR       inspection API listen address (default ":8080")
  --no-api             disable the inspection API entirely
  --history DSN        history backend: sqlite:PATH, postgres:DSN,
                        mysql:DSN, redis:ADDR[/DB], memory (default: memory)
  --pid PATH           write a PID file and refuse to start if one
                        already names a live rocketry process
  --log-file PATH      write logs to PATH instead of stderr
  --log-json           emit logs as JSON instead of text
  --log-level LEVEL    debug, info, warn, or error (default "info")
  --debug              --log-level debug, plus the scheduler's debug mode
  --status             report whether a daemon owns --pid and exit
  --stop               signal the daemon owning --pid to shut down
  --version, -v        print version information and exit
  --help, -h           show this help text
`, version.GetVersion())
}
