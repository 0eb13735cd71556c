// Command bankd runs a single bank node.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/Martin-Pop/bank-node-collaboration/internal/bank"
	"github.com/Martin-Pop/bank-node-collaboration/internal/config"
	"github.com/Martin-Pop/bank-node-collaboration/internal/log"
)

// cliOptions is the thin CLI layer over the config file: an operator can
// override the config path and the listen address without editing the
// file on disk.
type cliOptions struct {
	ConfigFile string `short:"c" long:"configfile" description:"Path to the bank's config.json" default:"config.json"`
	Host       string `long:"host" description:"Override the configured listen host"`
	Port       int    `long:"port" description:"Override the configured listen port"`
	DebugLevel string `long:"debuglevel" description:"Override the configured log level (trace, debug, info, warn, error, critical)"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var opts cliOptions
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return nil
		}
		return fmt.Errorf("bankd: parse flags: %w", err)
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("bankd: load config: %w", err)
	}
	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}
	if opts.DebugLevel != "" {
		cfg.LogLevel = opts.DebugLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("bankd: invalid config after overrides: %w", err)
	}

	if cfg.LogFile != "" {
		if err := log.InitLogRotator(cfg.LogFile, 3); err != nil {
			return fmt.Errorf("bankd: init log rotator: %w", err)
		}
	}
	if !log.SetLevelFromString(cfg.LogLevel) {
		return fmt.Errorf("bankd: unrecognized log level %q", cfg.LogLevel)
	}

	b, err := bank.Open(cfg)
	if err != nil {
		return fmt.Errorf("bankd: open bank: %w", err)
	}
	defer b.Close()

	if err := b.Start(); err != nil {
		return fmt.Errorf("bankd: start bank: %w", err)
	}

	log.Bank.Infof("bank node %s ready", b.BankCode())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Bank.Infof("shutting down")
	return nil
}
