// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aibor/pandarun/internal/image"
	"github.com/aibor/pandarun/internal/network"
	"github.com/aibor/pandarun/internal/qemu"
	"github.com/aibor/pandarun/internal/recording"
	"github.com/aibor/pandarun/internal/session"
	"github.com/aibor/pandarun/internal/sys"
)

const localConfigFile = ".pandarun-args"

// exitCodeInterrupted is returned when the run was canceled by a signal.
const exitCodeInterrupted = 130

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func parseArgs(args []string, output io.Writer) (*flags, error) {
	args, err := MergedArgs(args, os.DirFS("."), localConfigFile)
	if err != nil {
		return nil, err
	}

	flags := newFlags(output)

	err = flags.ParseArgs(args)
	if err != nil {
		return nil, err
	}

	return flags, nil
}

// guestFiles are the cached artifacts a guest needs to boot.
type guestFiles struct {
	qcow   string
	kernel string
	initrd string
}

// fetchGuestFiles downloads all artifacts of the selected image that are not
// cached yet. The disk image is skipped for replays, which run without one.
// Boot artifacts are fetched either way since replays need the same machine
// setup the recording was made with.
func fetchGuestFiles(ctx context.Context, flags *flags) (guestFiles, error) {
	var files guestFiles

	cacheDir := string(flags.cacheDir)

	if cacheDir == "" {
		var err error

		cacheDir, err = image.DefaultCacheDir()
		if err != nil {
			return files, fmt.Errorf("cache dir: %w", err)
		}
	}

	cache := image.Cache{Dir: cacheDir}

	fetch := func(url string) (string, error) {
		path, err := cache.GetFile(ctx, url)
		if err != nil {
			return "", fmt.Errorf("fetch %s: %w", url, err)
		}

		err = sys.ValidateFilePath(path)
		if err != nil {
			return "", fmt.Errorf("cached file %s: %w", path, err)
		}

		return path, nil
	}

	var err error

	if flags.replay == "" {
		files.qcow, err = fetch(flags.image.URL)
		if err != nil {
			return files, err
		}
	}

	if flags.image.KernelURL != "" {
		files.kernel, err = fetch(flags.image.KernelURL)
		if err != nil {
			return files, err
		}
	}

	if flags.image.InitrdURL != "" {
		files.initrd, err = fetch(flags.image.InitrdURL)
		if err != nil {
			return files, err
		}
	}

	return files, nil
}

// analysisTask is the default guest interaction. It reverts the guest to a
// clean snapshot, records the execution of the configured shell command and
// signals the end of analysis.
func analysisTask(flags *flags, stdout io.Writer) session.Task {
	return func(ctx context.Context, s *session.Session) error {
		err := s.RevertSync(ctx, flags.snapshot)
		if err != nil {
			return fmt.Errorf(
				"revert to snapshot %q: %w", flags.snapshot, err,
			)
		}

		output, err := s.RecordCmd(ctx, flags.command, flags.recording)
		if err != nil {
			return fmt.Errorf("record command: %w", err)
		}

		fmt.Fprintln(stdout, output)

		s.EndAnalysis()

		return nil
	}
}

func listRecordings(flags *flags, stdout io.Writer) error {
	recordings, err := recording.List(string(flags.workDir))
	if err != nil {
		return fmt.Errorf("list recordings: %w", err)
	}

	for _, rec := range recordings {
		fmt.Fprintln(stdout, rec.Name)
	}

	return nil
}

func exportRecording(flags *flags) error {
	rec := recording.Recording{
		Name: flags.recording,
		Dir:  string(flags.workDir),
	}

	err := rec.Validate()
	if err != nil {
		return fmt.Errorf("recording %q: %w", rec.Name, err)
	}

	file, err := os.Create(string(flags.exportPath))
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	err = rec.Export(file)
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("export recording: %w", err)
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	slog.Info("Exported recording",
		slog.String("name", rec.Name),
		slog.String("file", string(flags.exportPath)),
	)

	return nil
}

func importRecording(flags *flags) error {
	err := sys.ValidateFilePath(string(flags.importPath))
	if err != nil {
		return fmt.Errorf("archive %s: %w", flags.importPath, err)
	}

	file, err := os.Open(string(flags.importPath))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	rec, err := recording.Import(string(flags.workDir), file)
	if err != nil {
		return fmt.Errorf("import recording: %w", err)
	}

	slog.Info("Imported recording",
		slog.String("name", rec.Name),
		slog.String("dir", rec.Dir),
	)

	return nil
}

func run(ctx context.Context, flags *flags, cfg IO) error {
	switch {
	case flags.listRecordings:
		return listRecordings(flags, cfg.Stdout)
	case flags.exportPath != "":
		return exportRecording(flags)
	case flags.importPath != "":
		return importRecording(flags)
	}

	sessionCfg := session.Config{
		Image:       flags.image,
		Executable:  flags.qemuBin,
		BiosDir:     string(flags.biosDir),
		Memory:      flags.memory,
		Replay:      flags.replay,
		WorkDir:     string(flags.workDir),
		Interactive: flags.interactive,
		NoKVM:       flags.noKVM,
		Verbose:     flags.verbose,
	}

	files, err := fetchGuestFiles(ctx, flags)
	if err != nil {
		return err
	}

	sessionCfg.Qcow = files.qcow
	sessionCfg.Kernel = files.kernel
	sessionCfg.Initrd = files.initrd

	if flags.tapDevice != "" {
		tap, err := network.CreateTap(flags.tapDevice)
		if err != nil {
			return fmt.Errorf("create tap device: %w", err)
		}

		defer removeTap(tap)

		sessionCfg.TapDevice = tap.Name()
	}

	sess, err := session.New(sessionCfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	if flags.replay == "" && !flags.interactive {
		err = sess.QueueAsync(analysisTask(flags, cfg.Stdout))
		if err != nil {
			return fmt.Errorf("queue task: %w", err)
		}
	}

	err = sess.Run(ctx, cfg.Stdout, cfg.Stderr)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	return nil
}

func removeTap(tap *network.TapDevice) {
	err := tap.Remove()
	if err != nil {
		slog.Error("Failed to remove tap device",
			slog.String("name", tap.Name()),
			slog.Any("error", err),
		)
	}
}

func handleParseArgsError(err error) int {
	// [ErrHelp] is returned when help is requested. So exit without error
	// in this case.
	if errors.Is(err, ErrHelp) {
		return 0
	}

	// ParseArgs already prints errors, so we just exit without an error.
	if !errors.Is(err, &ParseArgsError{}) {
		slog.Error(err.Error())
	}

	return -1
}

func handleRunError(err error) int {
	if errors.Is(err, context.Canceled) {
		return exitCodeInterrupted
	}

	var cmdErr *qemu.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Guest {
		slog.Error("Guest failed", slog.Any("error", err))
		return -1
	}

	slog.Error(err.Error())

	return -1
}

// Run is the main entry point for the CLI command.
func Run(ctx context.Context, args []string, cfg IO) int {
	flags, err := parseArgs(args, cfg.Stderr)
	if err != nil {
		return handleParseArgsError(err)
	}

	setupLogging(cfg.Stderr, flags.logLevel())

	err = run(ctx, flags, cfg)
	if err != nil {
		return handleRunError(err)
	}

	return 0
}
