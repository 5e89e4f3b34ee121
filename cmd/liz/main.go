package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/chess10kp/liz/internal/config"
	"github.com/chess10kp/liz/internal/core"
)

const pidFile = "/tmp/liz.pid"

// ensureSingleInstance replaces a running liz: the newest launch wins.
func ensureSingleInstance() error {
	if data, err := os.ReadFile(pidFile); err == nil {
		if pid, err := strconv.Atoi(string(data)); err == nil && pid != os.Getpid() {
			process, err := os.FindProcess(pid)
			if err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					log.Printf("Stopping previous instance (pid %d)", pid)
					process.Signal(syscall.SIGTERM)
					waitForExit(process, 3*time.Second)
				}
			}
		}
	}
	return os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// waitForExit polls until process is gone so its shutdown cannot race ours
// for the socket path.
func waitForExit(process *os.Process, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := process.Signal(syscall.Signal(0)); err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	log.Printf("Previous instance (pid %d) still running after %v", process.Pid, timeout)
}

func cleanup() {
	os.Remove(pidFile)
}

func main() {
	configPath := flag.String("config", "~/.config/liz/config.toml", "path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		cfg = config.Default()
	}

	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		}
	}

	if err := ensureSingleInstance(); err != nil {
		log.Fatalf("Failed to ensure single instance: %v", err)
	}
	defer cleanup()

	app, err := core.NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
