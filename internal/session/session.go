// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aibor/pandarun/internal/console"
	"github.com/aibor/pandarun/internal/image"
	"github.com/aibor/pandarun/internal/monitor"
	"github.com/aibor/pandarun/internal/qemu"
)

const (
	monitorSocketName = "monitor.sock"
	serialSocketName  = "serial.sock"

	// quitTimeout limits how long shutdown waits for the emulator to
	// process the quit command before it is terminated forcefully.
	quitTimeout = 10 * time.Second
)

// Task is a unit of guest interaction run by [Session.Run] once the guest
// is up and both control channels are connected.
//
// Tasks run sequentially in the order they were queued. A task returning a
// non-nil error aborts the session.
type Task func(ctx context.Context, session *Session) error

// Config describes a single emulator session.
type Config struct {
	// Image is the guest image the session runs. Its architecture selects
	// the emulator binary and its prompt drives console interaction.
	Image image.Image

	// Qcow is the path to the guest disk image. Required unless Replay
	// is set.
	Qcow string

	// Kernel is the path to a kernel to boot the machine with, for images
	// whose machine type has no BIOS boot path.
	Kernel string

	// Initrd is the path to the initial ramdisk matching Kernel.
	Initrd string

	// Executable overrides the emulator binary derived from the image
	// architecture.
	Executable string

	// BiosDir overrides the firmware directory.
	BiosDir string

	// Memory is the guest memory in MB. Defaults to the image's memory
	// size.
	Memory uint64

	// Replay is the name of a recording to replay instead of running the
	// guest live.
	Replay string

	// TapDevice is the name of an existing tap device to attach to the
	// guest. Only valid for live runs.
	TapDevice string

	// WorkDir is the directory the emulator runs in. Recording artifacts
	// are written relative to it.
	WorkDir string

	// Prompt overrides the image's shell prompt pattern.
	Prompt string

	// Interactive attaches the guest serial console to a local PTY
	// instead of the command driven console. Guest command operations
	// are unavailable in this mode.
	Interactive bool

	NoKVM   bool
	Verbose bool
}

// guestControl is the emulator control channel used by guest operations.
type guestControl interface {
	LoadVM(ctx context.Context, name string) error
	SaveVM(ctx context.Context, name string) error
	BeginRecord(ctx context.Context, name string) error
	EndRecord(ctx context.Context) error
	Quit(ctx context.Context) error
	Close() error
}

// guestConsole is the guest shell used by guest command operations.
type guestConsole interface {
	RunCommand(ctx context.Context, cmd string) (string, error)
	Close() error
}

// Session drives a single emulator run.
//
// A Session is constructed with [New], loaded with deferred work via
// [Session.QueueAsync] and then executed with [Session.Run]. Guest
// operations like [Session.RevertSync] and [Session.RecordCmd] are only
// valid while Run is active, which is why they are usually called from
// queued tasks.
type Session struct {
	config    Config
	socketDir string
	prompt    string

	tasks []Task

	mu      sync.Mutex
	running bool
	ctrl    guestControl
	shell   guestConsole

	done    chan struct{}
	endOnce sync.Once

	// replaceable for tests
	runCommand     func(ctx context.Context, stdout, stderr io.Writer) error
	connectMonitor func(ctx context.Context, path string) (guestControl, error)
	connectConsole func(ctx context.Context, path, prompt string) (guestConsole, error)
}

// New creates a new [Session] for the given configuration.
//
// The emulator command line is built and validated immediately, so
// unsupported architectures and inconsistent configurations fail here
// instead of at [Session.Run] time.
func New(cfg Config) (*Session, error) {
	if cfg.Memory == 0 {
		cfg.Memory = cfg.Image.Memory
	}

	prompt := cfg.Prompt
	if prompt == "" {
		prompt = cfg.Image.Prompt
	}

	socketDir, err := os.MkdirTemp("", "pandarun-*")
	if err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}

	spec := qemu.CommandSpec{
		Executable:    cfg.Executable,
		BiosDir:       cfg.BiosDir,
		Qcow:          cfg.Qcow,
		Kernel:        cfg.Kernel,
		Initrd:        cfg.Initrd,
		OS:            cfg.Image.OS,
		Memory:        cfg.Memory,
		NoKVM:         cfg.NoKVM,
		Verbose:       cfg.Verbose,
		Replay:        cfg.Replay,
		TapDevice:     cfg.TapDevice,
		WorkDir:       cfg.WorkDir,
		MonitorSocket: filepath.Join(socketDir, monitorSocketName),
		ExtraArgs:     qemu.ParseExtraArgs(cfg.Image.ExtraArgs),
	}

	if cfg.Replay == "" {
		spec.SerialSocket = filepath.Join(socketDir, serialSocketName)
	}

	err = spec.AddDefaultsFor(cfg.Image.Arch)
	if err != nil {
		_ = os.RemoveAll(socketDir)
		return nil, fmt.Errorf("add defaults: %w", err)
	}

	cmd, err := qemu.NewCommand(spec)
	if err != nil {
		_ = os.RemoveAll(socketDir)
		return nil, fmt.Errorf("build command: %w", err)
	}

	slog.Debug("Session created", slog.String("command", cmd.String()))

	session := &Session{
		config:     cfg,
		socketDir:  socketDir,
		prompt:     prompt,
		done:       make(chan struct{}),
		runCommand: cmd.Run,
		connectMonitor: func(
			ctx context.Context,
			path string,
		) (guestControl, error) {
			return monitor.Connect(ctx, path)
		},
		connectConsole: func(
			ctx context.Context,
			path, prompt string,
		) (guestConsole, error) {
			return console.Connect(ctx, path, prompt)
		},
	}

	return session, nil
}

// QueueAsync adds a task to the session's task queue.
//
// Tasks run in queue order once [Session.Run] has brought the guest up.
// Queueing is only allowed before Run is called.
func (s *Session) QueueAsync(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	s.tasks = append(s.tasks, task)

	return nil
}

// Close removes the session's socket directory. It must be called for a
// session that is never run. [Session.Run] calls it on return, so calling
// it again afterwards is harmless.
func (s *Session) Close() error {
	return os.RemoveAll(s.socketDir) //nolint:wrapcheck
}

// EndAnalysis signals that all analysis work is done and [Session.Run]
// should shut the emulator down. It is safe to call multiple times and
// from any goroutine.
func (s *Session) EndAnalysis() {
	s.endOnce.Do(func() { close(s.done) })
}

// Run starts the emulator and blocks until [Session.EndAnalysis] is
// called, a task fails, the guest terminates or the context is canceled.
//
// Emulator output is written to the given writers. Queued tasks run
// sequentially once the guest is up. A task error is returned wrapped in
// a [TaskError] after the emulator has been shut down.
func (s *Session) Run(ctx context.Context, stdout, stderr io.Writer) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.ctrl = nil
		s.shell = nil
		s.mu.Unlock()

		_ = s.Close()
	}()

	processDone := make(chan struct{})

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(processDone)

		return s.runCommand(egCtx, stdout, stderr)
	})

	eg.Go(func() error {
		// The errgroup context is not canceled when the emulator
		// terminates cleanly, so derive a context that is.
		driveCtx, driveCancel := context.WithCancel(egCtx)
		defer driveCancel()

		go func() {
			<-processDone
			driveCancel()
		}()

		return s.drive(driveCtx, processDone)
	})

	return eg.Wait()
}

// drive connects the control channels, runs the queued tasks and waits
// for the end of analysis signal or the emulator's own termination.
func (s *Session) drive(
	ctx context.Context,
	processDone <-chan struct{},
) error {
	ctrl, err := s.connectMonitor(ctx, s.monitorPath())
	if err != nil {
		return fmt.Errorf("connect monitor: %w", err)
	}
	defer ctrl.Close()

	var shell guestConsole

	switch {
	case s.config.Replay != "":
	case s.config.Interactive:
		bridge, err := s.attachPTY(ctx)
		if err != nil {
			return err
		}
		defer bridge.Close()
	default:
		shell, err = s.connectConsole(ctx, s.serialPath(), s.prompt)
		if err != nil {
			return fmt.Errorf("connect console: %w", err)
		}
		defer shell.Close()
	}

	s.mu.Lock()
	s.ctrl = ctrl
	s.shell = shell
	s.mu.Unlock()

	slog.Debug("Guest is up, running tasks", slog.Int("tasks", len(s.tasks)))

	for _, task := range s.tasks {
		err = task(ctx, s)
		if err != nil {
			// Best effort. The run group terminates the process
			// anyway once the task error propagates.
			_ = s.shutdown(ctrl)

			return &TaskError{Err: err}
		}
	}

	select {
	case <-s.done:
	case <-processDone:
		// Replays terminate the emulator on their own.
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	return s.shutdown(ctrl)
}

// attachPTY connects the guest serial console to a local PTY and starts
// copying data between them.
func (s *Session) attachPTY(ctx context.Context) (*console.PTYBridge, error) {
	conn, err := console.DialSocket(ctx, s.serialPath())
	if err != nil {
		return nil, fmt.Errorf("dial serial socket: %w", err)
	}

	bridge, err := console.NewPTYBridge(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create pty: %w", err)
	}

	slog.Info("Guest console attached", slog.String("pty", bridge.Name()))

	go func() {
		err := bridge.Run(ctx)
		if err != nil {
			slog.Warn("Console bridge failed", slog.Any("error", err))
		}
	}()

	return bridge, nil
}

// shutdown asks the emulator to quit. A failing quit command is returned
// as error so the run group falls back to terminating the process.
func (s *Session) shutdown(ctrl guestControl) error {
	ctx, cancel := context.WithTimeout(context.Background(), quitTimeout)
	defer cancel()

	err := ctrl.Quit(ctx)
	if err != nil {
		return fmt.Errorf("quit: %w", err)
	}

	return nil
}

func (s *Session) monitorPath() string {
	return filepath.Join(s.socketDir, monitorSocketName)
}

func (s *Session) serialPath() string {
	return filepath.Join(s.socketDir, serialSocketName)
}

// control returns the guest control channel or [ErrNotRunning] if the
// guest is not up.
func (s *Session) control() (guestControl, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return nil, ErrNotRunning
	}

	return s.ctrl, nil
}

// commandConsole returns the guest shell, [ErrNotRunning] if the guest is
// not up or [ErrNoConsole] if the session runs without a command console.
func (s *Session) commandConsole() (guestConsole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return nil, ErrNotRunning
	}

	if s.shell == nil {
		return nil, ErrNoConsole
	}

	return s.shell, nil
}

// RevertSync reverts the guest to the named snapshot and waits for the
// operation to complete.
func (s *Session) RevertSync(ctx context.Context, name string) error {
	ctrl, err := s.control()
	if err != nil {
		return err
	}

	slog.Info("Reverting to snapshot", slog.String("name", name))

	return ctrl.LoadVM(ctx, name)
}

// TakeSnapshot saves the current guest state as the named snapshot.
func (s *Session) TakeSnapshot(ctx context.Context, name string) error {
	ctrl, err := s.control()
	if err != nil {
		return err
	}

	slog.Info("Taking snapshot", slog.String("name", name))

	return ctrl.SaveVM(ctx, name)
}

// RunCommand runs the given shell command in the guest and returns its
// output.
func (s *Session) RunCommand(ctx context.Context, cmd string) (string, error) {
	shell, err := s.commandConsole()
	if err != nil {
		return "", err
	}

	return shell.RunCommand(ctx, cmd)
}

// RecordCmd records the execution of the given shell command into a
// recording with the given name and returns the command's output.
//
// Recording starts before the command is sent to the guest and ends once
// the guest prompt returns, so the recording captures the complete
// execution.
func (s *Session) RecordCmd(
	ctx context.Context,
	cmd, name string,
) (string, error) {
	shell, err := s.commandConsole()
	if err != nil {
		return "", err
	}

	ctrl, err := s.control()
	if err != nil {
		return "", err
	}

	slog.Info("Recording command",
		slog.String("name", name),
		slog.String("cmd", cmd),
	)

	err = ctrl.BeginRecord(ctx, name)
	if err != nil {
		return "", fmt.Errorf("begin record: %w", err)
	}

	output, cmdErr := shell.RunCommand(ctx, cmd)

	err = ctrl.EndRecord(ctx)
	if err != nil {
		return output, fmt.Errorf("end record: %w", err)
	}

	if cmdErr != nil {
		return output, fmt.Errorf("run command: %w", cmdErr)
	}

	return output, nil
}
