// Package flag parses cmd/pound's command-line arguments.
//
// ParseSize is carried over from
// _examples/bobuhiro11-gokvm/flag/flag.go — the number[gGmMkK] memory
// size grammar is unchanged by the rest of this rework. ParseArgs is
// rewritten for this core's own flag set (no kernel/initrd/tap/disk
// paths: a guest memory size, a hardware target name, and a log level
// are all cmd/pound needs).
package flag

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ParseSize parses a size string as number[gGmMkK]. The multiplier is
// optional; if absent, unit is used instead.
func ParseSize(s, unit string) (int, error) {
	sz := strings.TrimRight(s, "gGmMkK")
	if len(sz) == 0 {
		return -1, fmt.Errorf("%q: can't parse as num[gGmMkK]: %w", s, strconv.ErrSyntax)
	}

	amt, err := strconv.ParseUint(sz, 0, 0)
	if err != nil {
		return -1, err
	}

	if len(s) > len(sz) {
		unit = s[len(sz):]
	}

	switch unit {
	case "G", "g":
		return int(amt) << 30, nil
	case "M", "m":
		return int(amt) << 20, nil
	case "K", "k":
		return int(amt) << 10, nil
	case "":
		return int(amt), nil
	}

	return -1, fmt.Errorf("can not parse %q as num[gGmMkK]: %w", s, strconv.ErrSyntax)
}

// Args holds cmd/pound's parsed configuration.
type Args struct {
	MemSize  int
	Target   string
	LogLevel logrus.Level
}

// ParseArgs parses args (typically os.Args) into an Args. It uses its
// own FlagSet rather than the package-global flag.CommandLine so tests
// can call it repeatedly without colliding on flag redefinition.
func ParseArgs(args []string) (Args, error) {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)

	msize := fs.String("m", "256M", "guest RAM size: number[gGmMkK], defaults to bytes")
	target := fs.String("target", "switch1", "hardware target to probe")
	level := fs.String("log-level", "info", "log level: trace, debug, info, warn, error")

	if err := fs.Parse(args[1:]); err != nil {
		return Args{}, err
	}

	memSize, err := ParseSize(*msize, "")
	if err != nil {
		return Args{}, fmt.Errorf("parsing -m: %w", err)
	}

	logLevel, err := logrus.ParseLevel(*level)
	if err != nil {
		return Args{}, fmt.Errorf("parsing -log-level: %w", err)
	}

	return Args{MemSize: memSize, Target: *target, LogLevel: logLevel}, nil
}
