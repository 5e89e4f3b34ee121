// Package ipc is the liz control socket: one plain text message per
// connection, sent by lizclient, the sway trigger binding, or the backend
// when its data changes.
package ipc

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chess10kp/liz/internal/palette"
)

const (
	MessageFetchAgain = "fetch-again"
	MessageShow       = "show"
	MessageHide       = "hide"
	MessageToggle     = "toggle"
)

// Controller is the palette surface the socket can drive.
type Controller interface {
	DataChanged()
	Show() error
	Hide() error
	Toggle() error
}

// Deliverer takes hotkey trigger messages. It reports whether the message
// was one of them.
type Deliverer interface {
	Deliver(message string) bool
}

type Server struct {
	socketPath string
	loop       palette.Loop
	controller Controller
	triggers   Deliverer

	mu       sync.Mutex
	listener net.Listener
	// socketInfo identifies the socket file this server bound, so Stop never
	// removes one a newer instance bound at the same path.
	socketInfo os.FileInfo
	running    bool
	wg         sync.WaitGroup
}

// NewServer routes messages to controller on loop. triggers may be nil when
// no hotkey service is registered.
func NewServer(socketPath string, loop palette.Loop, controller Controller, triggers Deliverer) *Server {
	return &Server{
		socketPath: socketPath,
		loop:       loop,
		controller: controller,
		triggers:   triggers,
	}
}

func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("IPC server already running")
	}

	if _, err := os.Stat(s.socketPath); err == nil {
		os.Remove(s.socketPath)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}

	if ul, ok := listener.(*net.UnixListener); ok {
		ul.SetUnlinkOnClose(false)
	}
	info, err := os.Stat(s.socketPath)
	if err != nil {
		listener.Close()
		return fmt.Errorf("failed to stat socket: %w", err)
	}

	s.listener = listener
	s.socketInfo = info
	s.running = true
	log.Printf("[IPC] Listening on %s", s.socketPath)

	s.wg.Add(1)
	go s.acceptConnections(listener)
	return nil
}

func (s *Server) acceptConnections(listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("[IPC] Error accepting connection: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		log.Printf("[IPC] Error reading from connection: %v", err)
		return
	}

	message := strings.TrimSpace(string(buf[:n]))
	log.Printf("[IPC] Received message: %s", message)

	s.loop.Post(func() { s.handleMessage(message) })
}

// handleMessage runs on the loop.
func (s *Server) handleMessage(message string) {
	if s.triggers != nil && s.triggers.Deliver(message) {
		return
	}

	var err error
	switch message {
	case MessageFetchAgain:
		s.controller.DataChanged()
	case MessageShow:
		err = s.controller.Show()
	case MessageHide:
		err = s.controller.Hide()
	case MessageToggle:
		err = s.controller.Toggle()
	default:
		log.Printf("[IPC] Unknown message: %q", message)
		return
	}

	if err != nil {
		log.Printf("[IPC] %s failed: %v", message, err)
	}
}

func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	listener := s.listener
	s.mu.Unlock()

	err := listener.Close()
	s.wg.Wait()

	if info, statErr := os.Stat(s.socketPath); statErr == nil && os.SameFile(info, s.socketInfo) {
		os.Remove(s.socketPath)
	} else if statErr == nil {
		log.Printf("[IPC] %s now belongs to another instance, leaving it", s.socketPath)
	}

	log.Println("[IPC] Server stopped")
	return err
}

// Send writes one message to the liz socket at socketPath.
func Send(socketPath, message string) error {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to liz socket %s: %w", socketPath, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(message)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
