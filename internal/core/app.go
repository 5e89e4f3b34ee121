package core

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"

	"github.com/chess10kp/liz/internal/bluebird"
	"github.com/chess10kp/liz/internal/config"
	"github.com/chess10kp/liz/internal/hotkey"
	"github.com/chess10kp/liz/internal/ipc"
	"github.com/chess10kp/liz/internal/notify"
	"github.com/chess10kp/liz/internal/palette"
	"github.com/chess10kp/liz/internal/search"
)

// glibLoop runs palette callbacks on the GTK main loop.
type glibLoop struct{}

func (glibLoop) Post(fn func()) {
	glib.IdleAdd(func() bool {
		fn()
		return false
	})
}

// App is main application
type App struct {
	config   *config.Config
	running  bool
	sigChan  chan os.Signal
	launcher *Launcher
	palette  *palette.Coordinator
	ipc      *ipc.Server
	hotkeys  *hotkey.SwayService
}

func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &App{
		config:  cfg,
		sigChan: make(chan os.Signal, 1),
	}, nil
}

// PaletteOptions maps the launcher config onto the coordinator options.
func PaletteOptions(cfg *config.Config) palette.Options {
	s := cfg.Launcher.Search
	return palette.Options{
		DebounceDelay: cfg.DebounceDelay(),
		VisibleRows:   cfg.Launcher.Window.VisibleRows,
		DismissAction: palette.DismissAction(cfg.Launcher.Behavior.DismissAction),
		CallTimeout:   cfg.CallTimeout(),
		Search: search.Options{
			MinMatchChars: s.MinMatchChars,
			MaxResults:    s.MaxResults,
			Typos:         s.Typos,
			CacheSize:     s.CacheSize,
		},
	}
}

func KeymapFromConfig(keys config.KeysConfig) palette.Keymap {
	return palette.NewKeymap(keys.Up, keys.Down, keys.Activate, keys.Close)
}

// Run blocks in the GTK main loop until the palette closes or a signal
// arrives.
func (a *App) Run() error {
	a.running = true

	signal.Notify(a.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-a.sigChan
		log.Printf("Received signal: %v", sig)
		glib.IdleAdd(func() bool {
			a.Quit()
			return false
		})
	}()

	log.Println("liz starting...")

	gtk.Init(nil)
	if err := a.initialize(); err != nil {
		return err
	}

	go a.monitorGTKMainLoop()

	gtk.Main()
	return nil
}

func (a *App) initialize() error {
	log.Println("Initializing components...")

	SetupStyles(a.config.Launcher.Styling)
	LoadCustomCSS(a.config.ResolvePath(a.config.Launcher.CustomCSS))

	backend := bluebird.NewClient(a.config.Backend.SocketPath, a.config.CallTimeout())

	l, err := NewLauncher(a.config)
	if err != nil {
		return fmt.Errorf("failed to create launcher: %w", err)
	}
	a.launcher = l

	if a.config.Notifications.Enabled {
		n, err := notify.New(a.config.AppName, a.config.AppID, int32(a.config.Notifications.Timeout))
		if err != nil {
			log.Printf("[NOTIFY] Desktop notifications unavailable: %v", err)
		} else {
			l.SetNotifier(n)
		}
	}

	a.palette = palette.NewCoordinator(
		PaletteOptions(a.config),
		glibLoop{},
		l,
		l,
		backend,
		KeymapFromConfig(a.config.Launcher.Keys),
	)
	l.Bind(a.palette, a.Quit)
	a.palette.Start()

	if a.config.Hotkey.Enabled {
		a.registerTrigger(backend)
	}

	server := ipc.NewServer(a.config.SocketPath, glibLoop{}, a.palette, a.deliverer())
	if err := server.Start(); err != nil {
		log.Printf("Failed to start IPC server: %v", err)
	} else {
		a.ipc = server
	}

	if err := a.palette.Show(); err != nil {
		log.Printf("Failed to show launcher: %v", err)
	}

	log.Println("Initialization complete")
	return nil
}

func (a *App) deliverer() ipc.Deliverer {
	if a.hotkeys == nil {
		return nil
	}
	return a.hotkeys
}

// registerTrigger connects to sway and binds the trigger shortcut. The
// binding itself is resolved off the main loop since it asks the backend.
func (a *App) registerTrigger(backend bluebird.Invoker) {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.CallTimeout())
	defer cancel()

	svc, err := hotkey.NewSwayService(ctx, a.config.Hotkey.ClientCommand)
	if err != nil {
		log.Printf("[HOTKEY] Global trigger unavailable: %v", err)
		return
	}
	a.hotkeys = svc

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*a.config.CallTimeout())
		defer cancel()

		binding := hotkey.ResolveTrigger(ctx, backend, a.config.Launcher.TriggerShortcut)
		err := svc.Register(ctx, binding, func(state hotkey.State) {
			a.palette.HotkeyPressed(state)
		})
		if err == nil {
			return
		}

		log.Printf("[HOTKEY] %v", err)
		glibLoop{}.Post(func() {
			if a.running {
				a.palette.ReportError(fmt.Sprintf("Failed to register the trigger shortcut because %v", err))
			}
		})
	}()
}

// Quit tears everything down and leaves the GTK main loop. It runs on the
// main loop.
func (a *App) Quit() {
	if !a.running {
		return
	}
	a.running = false

	log.Println("Shutting down...")

	if a.palette != nil {
		a.palette.Stop()
	}

	if a.ipc != nil {
		a.ipc.Stop()
	}

	// The sway binding outlives the process: lizclient starts a new liz when
	// the trigger fires and nothing is listening.

	gtk.MainQuit()
}

// monitorGTKMainLoop logs when the main loop stops running idle callbacks.
func (a *App) monitorGTKMainLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if !a.running {
			return
		}

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		debugLogger.Printf("MONITOR: goroutines=%d alloc=%dMB", runtime.NumGoroutine(), m.Alloc/1024/1024)

		testDone := make(chan bool, 1)
		glib.IdleAdd(func() bool {
			testDone <- true
			return false
		})

		select {
		case <-testDone:
		case <-time.After(2 * time.Second):
			log.Printf("[MONITOR] WARNING: GTK main loop appears to be BLOCKED (callback not executed in 2s)")
		}
	}
}
