// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/aibor/pandarun/internal/image"
	"github.com/aibor/pandarun/internal/network"
)

const (
	name = "pandarun"

	memMin = 128
	memMax = 16384

	defaultImage     = "x86_64"
	defaultCommand   = `echo test && bash -c "echo test2"`
	defaultRecording = "test"

	usageMessage = `Usage of 'pandarun':
    pandarun [flags...] [image]

Run a PANDA guest image, record the execution of a shell command and write
the recording artifacts to the working directory:
	pandarun -cmd 'whoami' -recording whoami x86_64

Replay a previous recording:
	pandarun -replay whoami x86_64

All pandarun flags can also be provided via environment variable
PANDARUN_ARGS:
	PANDARUN_ARGS="-mem 2048 -debug" pandarun

All pandarun flags can also be provided via file ./.pandarun-args, with one
argument per line.
`
)

type flags struct {
	flagSet *flag.FlagSet

	image     image.Image
	command   string
	recording string
	snapshot  string
	replay    string
	memory    uint64
	qemuBin   string
	biosDir   FilePath
	workDir   FilePath
	cacheDir  FilePath
	tapDevice string

	exportPath FilePath
	importPath FilePath

	noKVM          bool
	interactive    bool
	listRecordings bool
	verbose        bool
	debug          bool
	version        bool
}

func newFlags(output io.Writer) *flags {
	flags := &flags{
		command:   defaultCommand,
		recording: defaultRecording,
		workDir:   ".",
	}

	flags.initFlagset(output)

	return flags
}

func (f *flags) ParseArgs(args []string) error {
	// Parses arguments up to the first one that is not prefixed with a "-" or
	// is "--".
	err := f.flagSet.Parse(args)
	if err != nil {
		return &ParseArgsError{msg: "flag parse", err: err}
	}

	// With version flag, just print the version and exit. Using [ErrHelp]
	// the main binary is supposed to return with a non error exit code.
	if f.version {
		err := f.printVersionInformation()
		return &ParseArgsError{msg: "version requested", err: err}
	}

	positionalArgs := f.flagSet.Args()
	if len(positionalArgs) > 1 {
		return f.fail("too many arguments", nil)
	}

	// The optional positional argument selects the guest image.
	imageName := defaultImage
	if len(positionalArgs) == 1 {
		imageName = positionalArgs[0]
	}

	img, err := image.Find(imageName)
	if err != nil {
		return f.fail("image", err)
	}

	f.image = img

	if f.snapshot == "" {
		f.snapshot = img.Snapshot
	}

	if f.tapDevice != "" {
		err := network.ValidateDeviceName(f.tapDevice)
		if err != nil {
			return f.fail("tap device", err)
		}
	}

	if f.replay != "" && f.interactive {
		return f.fail("replays have no console to attach to", nil)
	}

	return nil
}

func (f *flags) initFlagset(output io.Writer) {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = f.usage

	flagSet.StringVar(
		&f.command,
		"cmd",
		f.command,
		"shell command to record in the guest",
	)

	flagSet.StringVar(
		&f.recording,
		"recording",
		f.recording,
		"name for the recording artifacts",
	)

	flagSet.StringVar(
		&f.snapshot,
		"snapshot",
		f.snapshot,
		"snapshot to revert to before recording (default depends on image)",
	)

	flagSet.StringVar(
		&f.replay,
		"replay",
		f.replay,
		"replay the recording with the given name instead of running live",
	)

	flagSet.Var(
		&limitedUintValue{
			Value: &f.memory,
			min:   memMin,
			max:   memMax,
		},
		"mem",
		"memory (in MB) for the guest (default depends on image)",
	)

	flagSet.StringVar(
		&f.qemuBin,
		"qemu-bin",
		f.qemuBin,
		"emulator binary to use (default depends on image arch: "+
			"panda-system-*)",
	)

	flagSet.Var(
		&f.biosDir,
		"bios",
		"directory with the emulator firmware files "+
			"(default $PANDA_PATH/pc-bios)",
	)

	flagSet.Var(
		&f.workDir,
		"dir",
		"directory recording artifacts are written to and read from",
	)

	flagSet.Var(
		&f.cacheDir,
		"cache",
		"directory guest images are downloaded to (default ~/.pandarun)",
	)

	flagSet.StringVar(
		&f.tapDevice,
		"net",
		f.tapDevice,
		"create the named tap device and attach it as guest network "+
			"interface",
	)

	flagSet.BoolVar(
		&f.noKVM,
		"nokvm",
		f.noKVM,
		"disable hardware support (default is enabled if present and image "+
			"matches the host arch)",
	)

	flagSet.BoolVar(
		&f.interactive,
		"pty",
		f.interactive,
		"attach the guest console to a local PTY instead of recording",
	)

	flagSet.BoolVar(
		&f.listRecordings,
		"list-recordings",
		f.listRecordings,
		"list recordings in the working directory and exit",
	)

	flagSet.Var(
		&f.exportPath,
		"export",
		"export the recording to the given archive file and exit",
	)

	flagSet.Var(
		&f.importPath,
		"import",
		"import a recording from the given archive file and exit",
	)

	flagSet.BoolVar(
		&f.verbose,
		"verbose",
		f.verbose,
		"enable verbose guest system output",
	)

	flagSet.BoolVar(
		&f.debug,
		"debug",
		f.debug,
		"enable debug output",
	)

	flagSet.BoolVar(
		&f.version,
		"version",
		f.version,
		"show version and exit",
	)

	f.flagSet = flagSet
}

// fail fails like flag does. It prints the error first and then usage.
func (f *flags) fail(msg string, err error) error {
	err = &ParseArgsError{msg: msg, err: err}
	fmt.Fprintln(f.flagSet.Output(), err.Error())

	f.flagSet.Usage()

	return err
}

func (f *flags) logLevel() slog.Level {
	switch {
	case f.debug:
		return slog.LevelDebug
	case f.verbose:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

func (f *flags) printVersionInformation() error {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return ErrReadBuildInfo
	}

	fmt.Fprintf(f.flagSet.Output(), "Version: %s\n", buildInfo.Main.Version)

	return ErrHelp
}

func (f *flags) usage() {
	fmt.Fprint(f.flagSet.Output(), usageMessage)
	fmt.Fprintln(f.flagSet.Output(), "\nKnown images:")
	fmt.Fprintln(f.flagSet.Output(), "\t"+strings.Join(image.Names(), ", "))
	fmt.Fprintln(f.flagSet.Output(), "\nFlags:")
	f.flagSet.PrintDefaults()
}
