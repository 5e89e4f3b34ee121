package main

import (
	"fmt"
	"os"

	"github.com/chess10kp/liz/internal/config"
)

func main() {
	configPath := "~/.config/liz/config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	fmt.Printf("Validating config: %s\n", configPath)

	cfg, err := config.LoadAndValidateConfig(configPath)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Config is valid (backend %s, trigger %q, dismiss %s)\n",
		cfg.Backend.SocketPath, cfg.Launcher.TriggerShortcut, cfg.Launcher.Behavior.DismissAction)
}
