package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/joshuarubin/go-sway"
)

// Messages the sway bindings send back over the liz socket.
const (
	MessagePressed  = "trigger"
	MessageReleased = "trigger-release"
)

type commandRunner interface {
	RunCommand(ctx context.Context, command string) ([]sway.RunCommandReply, error)
}

// SwayService binds the trigger through sway IPC. The binding execs the
// client command, which writes MessagePressed or MessageReleased to the liz
// socket; the IPC server hands those to Deliver.
type SwayService struct {
	mu        sync.Mutex
	runner    commandRunner
	clientCmd string
	combo     string
	handler   Handler
}

// NewSwayService connects to the running sway instance.
func NewSwayService(ctx context.Context, clientCmd string) (*SwayService, error) {
	client, err := sway.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sway: %w", err)
	}
	return newSwayService(client, clientCmd), nil
}

func newSwayService(runner commandRunner, clientCmd string) *SwayService {
	if clientCmd == "" {
		clientCmd = "lizclient"
	}
	return &SwayService{runner: runner, clientCmd: clientCmd}
}

func (s *SwayService) Register(ctx context.Context, binding string, handler Handler) error {
	b, err := ParseBinding(binding)
	if err != nil {
		return &RegistrationError{Binding: binding, Err: err}
	}
	combo := b.SwayCombo()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.combo != "" && s.combo != combo {
		s.unbindLocked(ctx)
	}

	commands := []string{
		fmt.Sprintf("bindsym --no-repeat %s exec %s %s", combo, s.clientCmd, MessagePressed),
		fmt.Sprintf("bindsym --release %s exec %s %s", combo, s.clientCmd, MessageReleased),
	}
	for _, cmd := range commands {
		if err := s.run(ctx, cmd); err != nil {
			return &RegistrationError{Binding: binding, Err: err}
		}
	}

	s.combo = combo
	s.handler = handler
	log.Printf("[HOTKEY] Registered %s as sway combo %s", b, combo)
	return nil
}

func (s *SwayService) unbindLocked(ctx context.Context) {
	if s.combo == "" {
		return
	}
	for _, cmd := range []string{
		"unbindsym " + s.combo,
		"unbindsym --release " + s.combo,
	} {
		if err := s.run(ctx, cmd); err != nil {
			log.Printf("[HOTKEY] Failed to remove binding %s: %v", s.combo, err)
		}
	}
	s.combo = ""
}

// Deliver routes a socket message to the registered handler. It reports
// whether the message was a trigger message.
func (s *SwayService) Deliver(message string) bool {
	var state State
	switch message {
	case MessagePressed:
		state = Pressed
	case MessageReleased:
		state = Released
	default:
		return false
	}

	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()

	if handler == nil {
		log.Printf("[HOTKEY] %s received with no handler registered", message)
		return true
	}
	handler(state)
	return true
}

func (s *SwayService) run(ctx context.Context, cmd string) error {
	replies, err := s.runner.RunCommand(ctx, cmd)
	if err != nil {
		return fmt.Errorf("sway command %q: %w", cmd, err)
	}

	var failures []string
	for _, r := range replies {
		if !r.Success {
			failures = append(failures, r.Error)
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("sway command %q: %w", cmd, errors.New(strings.Join(failures, "; ")))
	}
	return nil
}
