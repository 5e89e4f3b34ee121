package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chess10kp/liz/internal/config"
	"github.com/chess10kp/liz/internal/hotkey"
	"github.com/chess10kp/liz/internal/ipc"
)

var (
	socketPath    = config.DefaultConfig.SocketPath
	daemonCommand = config.DefaultConfig.Hotkey.DaemonCommand
)

func init() {
	configPath := filepath.Join(os.Getenv("HOME"), ".config", "liz", "config.toml")
	cfg, err := config.LoadConfig(configPath)
	if err == nil {
		if cfg.SocketPath != "" {
			socketPath = cfg.SocketPath
		}
		daemonCommand = cfg.Hotkey.DaemonCommand
	}

	if env := os.Getenv("LIZ_SOCKET"); env != "" {
		socketPath = env
	}
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "help", "-h", "--help":
		printUsage()
		return
	case ipc.MessageShow, ipc.MessageHide, ipc.MessageToggle, ipc.MessageFetchAgain, hotkey.MessagePressed, hotkey.MessageReleased:
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	err := ipc.Send(socketPath, command)
	if err == nil {
		return
	}

	// A trigger with no daemon listening starts one; a fresh liz shows the
	// palette on its own.
	if command == hotkey.MessagePressed && daemonCommand != "" {
		startErr := startDaemon()
		if startErr == nil {
			return
		}
		log.Printf("Failed to start %s: %v", daemonCommand, startErr)
	}
	log.Fatalf("%v\nIs liz running?", err)
}

func startDaemon() error {
	fields := strings.Fields(daemonCommand)
	if len(fields) == 0 {
		return fmt.Errorf("empty daemon command")
	}
	cmd := exec.Command(fields[0], fields[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func printUsage() {
	fmt.Println("lizclient - Control liz from the command line")
	fmt.Println()
	fmt.Println("Usage: lizclient <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  show             Show the shortcut palette")
	fmt.Println("  hide             Hide the shortcut palette")
	fmt.Println("  toggle           Show or hide the shortcut palette")
	fmt.Println("  fetch-again      Tell liz the backend's shortcuts changed")
	fmt.Println("  trigger          Global trigger pressed (sent by the sway binding)")
	fmt.Println("  trigger-release  Global trigger released (sent by the sway binding)")
	fmt.Println("  help             Show this help message")
	fmt.Println()
	fmt.Println("Socket path:", socketPath)
}
