// Command pound boots a single vCPU against a hardware target and idles,
// the minimal bring-up loop this execution core supports today: no
// guest image is loaded and no instructions are executed (see spec.md
// §1 Non-goals) — this is infrastructure bring-up, not a guest runner.
//
// Grounded on _examples/bobuhiro11-gokvm/main.go's
// parse-flags/construct-machine/run-loop shape, stripped of the
// Linux-kernel-boot and terminal-passthrough steps that don't apply to
// this core's scope.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pound-emu/pound/flag"
	"github.com/pound-emu/pound/machine"
	_ "github.com/pound-emu/pound/switch1"
	"github.com/pound-emu/pound/vlog"
)

var log = vlog.New("cmd/pound")

func main() {
	if err := run(os.Args); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := flag.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("parsing arguments: %w", err)
	}

	vlog.SetLevel(cfg.LogLevel)

	vm, err := machine.New(uint64(cfg.MemSize))
	if err != nil {
		return fmt.Errorf("constructing vm: %w", err)
	}

	defer func() {
		if err := machine.Destroy(vm); err != nil {
			log.Errorf("destroying vm: %v", err)
		}
	}()

	if err := machine.Probe(vm, machine.TargetType(cfg.Target)); err != nil {
		return fmt.Errorf("probing target %q: %w", cfg.Target, err)
	}

	log.Infof("vm ready: target=%q mem=%d bytes", cfg.Target, vm.Mem.Size())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Infof("shutting down")

	return nil
}
