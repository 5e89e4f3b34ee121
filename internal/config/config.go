package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	AppName       string              `toml:"app_name"`
	AppID         string              `toml:"app_id"`
	SocketPath    string              `toml:"socket_path"`
	LogFile       string              `toml:"log_file"`
	ConfigDir     string              `toml:"config_dir"`
	Backend       BackendConfig       `toml:"backend"`
	Launcher      LauncherConfig      `toml:"launcher"`
	Hotkey        HotkeyConfig        `toml:"hotkey"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type BackendConfig struct {
	SocketPath  string `toml:"socket_path"`
	CallTimeout int    `toml:"call_timeout"` // milliseconds
}

type LauncherConfig struct {
	Window          WindowConfig   `toml:"window"`
	Search          SearchConfig   `toml:"search"`
	Behavior        BehaviorConfig `toml:"behavior"`
	Keys            KeysConfig     `toml:"keys"`
	Styling         StylingConfig  `toml:"styling"`
	TriggerShortcut string         `toml:"trigger_shortcut"`
	CustomCSS       string         `toml:"custom_css"`
}

type WindowConfig struct {
	Width       int  `toml:"width"`
	Height      int  `toml:"height"`
	VisibleRows int  `toml:"visible_rows"`
	LayerShell  bool `toml:"layer_shell"`
	TopMargin   int  `toml:"top_margin"`
}

type SearchConfig struct {
	DebounceDelay int  `toml:"debounce_delay"` // milliseconds
	MinMatchChars int  `toml:"min_match_chars"`
	MaxResults    int  `toml:"max_results"`
	Typos         bool `toml:"typos"`
	CacheSize     int  `toml:"cache_size"`
}

type BehaviorConfig struct {
	// DismissAction is what happens on focus loss with nothing pending:
	// "close" quits the daemon, "hide" keeps it resident.
	DismissAction string `toml:"dismiss_action"`
}

type KeysConfig struct {
	Up       []string `toml:"up"`
	Down     []string `toml:"down"`
	Activate []string `toml:"activate"`
	Close    []string `toml:"close"`
}

type StylingConfig struct {
	BackgroundColor string `toml:"background_color"`
	ForegroundColor string `toml:"foreground_color"`
	BorderColor     string `toml:"border_color"`
	AccentColor     string `toml:"accent_color"`
	EntryBackground string `toml:"entry_background"`
	ListRowSelected string `toml:"list_row_selected"`
	ListRowHover    string `toml:"list_row_hover"`
	BorderRadius    int    `toml:"border_radius"`
	FontFamily      string `toml:"font_family"`
	FontSize        int    `toml:"font_size"`
}

// NotificationsConfig controls desktop notifications for errors raised while
// the palette is hidden.
type NotificationsConfig struct {
	Enabled bool `toml:"enabled"`
	Timeout int  `toml:"timeout"` // milliseconds, -1 for the server default
}

type HotkeyConfig struct {
	Enabled       bool   `toml:"enabled"`
	ClientCommand string `toml:"client_command"`
	// DaemonCommand is what lizclient starts when the trigger fires and liz
	// is not running.
	DaemonCommand string `toml:"daemon_command"`
}

var DefaultConfig = Config{
	AppName:    "liz",
	AppID:      "com.github.chess10kp.liz",
	SocketPath: "/tmp/liz_socket",
	LogFile:    "/tmp/liz.log",
	ConfigDir:  "~/.config/liz",
	Backend: BackendConfig{
		SocketPath:  "/tmp/bluebird_socket",
		CallTimeout: 5000,
	},
	Launcher: LauncherConfig{
		Window: WindowConfig{
			Width:       600,
			Height:      420,
			VisibleRows: 10,
			LayerShell:  true,
			TopMargin:   40,
		},
		Search: SearchConfig{
			DebounceDelay: 300,
			MinMatchChars: 2,
			MaxResults:    100,
			Typos:         true,
			CacheSize:     200,
		},
		Behavior: BehaviorConfig{
			DismissAction: "close",
		},
		Keys: KeysConfig{
			Up:       []string{"Up", "Ctrl+P", "Ctrl+K"},
			Down:     []string{"Down", "Ctrl+N", "Ctrl+J"},
			Activate: []string{"Return", "KP_Enter"},
			Close:    []string{"Escape"},
		},
		Styling: StylingConfig{
			BackgroundColor: "#0e1419",
			ForegroundColor: "#ebdbb2",
			BorderColor:     "#313244",
			AccentColor:     "#89b4fa",
			EntryBackground: "#181825",
			ListRowSelected: "#89b4fa",
			ListRowHover:    "#313244",
			BorderRadius:    8,
			FontFamily:      "Iosevka, monospace",
			FontSize:        16,
		},
		TriggerShortcut: "",
	},
	Hotkey: HotkeyConfig{
		Enabled:       true,
		ClientCommand: "lizclient",
		DaemonCommand: "liz",
	},
	Notifications: NotificationsConfig{
		Enabled: true,
		Timeout: 5000,
	},
}

// Default returns a copy of DefaultConfig that does not share slices with it.
func Default() *Config {
	cfg := DefaultConfig
	cfg.Launcher.Keys = KeysConfig{
		Up:       append([]string(nil), DefaultConfig.Launcher.Keys.Up...),
		Down:     append([]string(nil), DefaultConfig.Launcher.Keys.Down...),
		Activate: append([]string(nil), DefaultConfig.Launcher.Keys.Activate...),
		Close:    append([]string(nil), DefaultConfig.Launcher.Keys.Close...),
	}
	return &cfg
}

// LoadConfig reads path on top of the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	expandedPath := expandPath(path)
	cfg := Default()

	if _, err := os.Stat(expandedPath); os.IsNotExist(err) {
		cfg.expandPaths()
		return cfg, nil
	}

	data, err := os.ReadFile(expandedPath)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", expandedPath, err)
	}

	cfg.expandPaths()
	return cfg, nil
}

func (c *Config) expandPaths() {
	c.ConfigDir = expandPath(c.ConfigDir)
	c.SocketPath = expandPath(c.SocketPath)
	c.LogFile = expandPath(c.LogFile)
	c.Backend.SocketPath = expandPath(c.Backend.SocketPath)
	c.Launcher.CustomCSS = expandPath(c.Launcher.CustomCSS)
}

// ResolvePath expands a leading ~ and places relative paths under ConfigDir.
func (c *Config) ResolvePath(path string) string {
	if path == "" {
		return ""
	}
	path = expandPath(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(expandPath(c.ConfigDir), path)
}

func LoadAndValidateConfig(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		usr, err := user.Current()
		if err == nil {
			return filepath.Join(usr.HomeDir, path[1:])
		}
	}
	return path
}

func SaveConfig(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(expandedPath, data, 0644)
}

func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.Launcher.Search.DebounceDelay) * time.Millisecond
}

func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Backend.CallTimeout) * time.Millisecond
}

func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWindow(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateBehavior(); err != nil {
		return err
	}
	if err := c.validateKeys(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket_path must not be empty")
	}
	if c.Backend.SocketPath == "" {
		return fmt.Errorf("backend.socket_path must not be empty")
	}
	if c.Backend.SocketPath == c.SocketPath {
		return fmt.Errorf("backend.socket_path and socket_path must differ (both %s)", c.SocketPath)
	}
	if c.Backend.CallTimeout < 100 || c.Backend.CallTimeout > 60000 {
		return fmt.Errorf("invalid call_timeout: %d (must be 100-60000ms)", c.Backend.CallTimeout)
	}
	return nil
}

func (c *Config) validateWindow() error {
	w := c.Launcher.Window
	if w.Width < 100 || w.Width > 4000 {
		return fmt.Errorf("invalid window width: %d (must be 100-4000)", w.Width)
	}
	if w.Height < 100 || w.Height > 4000 {
		return fmt.Errorf("invalid window height: %d (must be 100-4000)", w.Height)
	}
	if w.VisibleRows < 1 || w.VisibleRows > 100 {
		return fmt.Errorf("invalid visible_rows: %d (must be 1-100)", w.VisibleRows)
	}
	if w.TopMargin < 0 || w.TopMargin > 2000 {
		return fmt.Errorf("invalid top_margin: %d (must be 0-2000px)", w.TopMargin)
	}
	return nil
}

func (c *Config) validateSearch() error {
	s := c.Launcher.Search
	if s.MaxResults < 1 || s.MaxResults > 1000 {
		return fmt.Errorf("invalid max_results: %d (must be 1-1000)", s.MaxResults)
	}
	if s.DebounceDelay < 0 || s.DebounceDelay > 5000 {
		return fmt.Errorf("invalid debounce_delay: %d (must be 0-5000ms)", s.DebounceDelay)
	}
	if s.MinMatchChars < 1 || s.MinMatchChars > 10 {
		return fmt.Errorf("invalid min_match_chars: %d (must be 1-10)", s.MinMatchChars)
	}
	if s.CacheSize < 0 || s.CacheSize > 10000 {
		return fmt.Errorf("invalid cache_size: %d (must be 0-10000)", s.CacheSize)
	}
	return nil
}

func (c *Config) validateBehavior() error {
	switch c.Launcher.Behavior.DismissAction {
	case "close", "hide":
		return nil
	}
	return fmt.Errorf("invalid dismiss_action: %q (must be one of: close, hide)", c.Launcher.Behavior.DismissAction)
}

func (c *Config) validateKeys() error {
	k := c.Launcher.Keys
	for name, keys := range map[string][]string{
		"up":       k.Up,
		"down":     k.Down,
		"activate": k.Activate,
		"close":    k.Close,
	} {
		if len(keys) == 0 {
			return fmt.Errorf("launcher.keys.%s must list at least one key", name)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	t := c.Notifications.Timeout
	if t < -1 || t > 60000 {
		return fmt.Errorf("invalid notifications timeout: %d (must be -1 for the server default, or 0-60000ms)", t)
	}
	return nil
}

func ValidateConfig(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
