package di

import (
	"flag"
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/tagmda/internal/address"
	"github.com/mikey/tagmda/internal/config"
	"github.com/mikey/tagmda/internal/cookie"
	"github.com/mikey/tagmda/internal/factory"
	"github.com/mikey/tagmda/internal/logging"
)

// AddressFlags contains all command line flags for tagmda-address
type AddressFlags struct {
	ConfigFile string
	Verbose    bool

	// Base is the address to tag; defaults to the identity recipient
	Base string

	Confirm     bool
	PID         int
	Dated       bool
	Timeout     string
	Sender      string
	Keyword     string
	Check       string
	CheckSender string
	Fingerprint bool
}

// ParseAddressFlags parses the tagmda-address command line
func ParseAddressFlags(args []string) (*AddressFlags, error) {
	flags := &AddressFlags{}
	fs := flag.NewFlagSet("tagmda-address", flag.ContinueOnError)

	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.StringVar(&flags.Base, "address", "", "Address to tag (default: identity recipient)")

	fs.BoolVar(&flags.Confirm, "confirm", false, "Generate a confirmation address")
	fs.IntVar(&flags.PID, "pid", 0, "Process id embedded in a confirmation cookie (default: own pid)")
	fs.BoolVar(&flags.Dated, "dated", false, "Generate a dated address")
	fs.StringVar(&flags.Timeout, "timeout", "", "Lifetime of a dated address such as 5d (default: dated.timeout)")
	fs.StringVar(&flags.Sender, "sender", "", "Generate a sender address usable only by this sender")
	fs.StringVar(&flags.Keyword, "keyword", "", "Generate a keyword address")
	fs.StringVar(&flags.Check, "check", "", "Verify the cookie of a tagged address")
	fs.StringVar(&flags.CheckSender, "check-sender", "", "Envelope sender used when verifying sender addresses")
	fs.BoolVar(&flags.Fingerprint, "fingerprint", false, "Print the fingerprint of the lines read from stdin")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	modes := 0
	for _, set := range []bool{flags.Confirm, flags.Dated, flags.Sender != "", flags.Keyword != "", flags.Check != "", flags.Fingerprint} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return nil, fmt.Errorf("exactly one of -confirm, -dated, -sender, -keyword, -check, -fingerprint is required")
	}
	return flags, nil
}

// BuildAddressContainer creates and configures a dependency injection container for tagmda-address
func BuildAddressContainer(flags *AddressFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *AddressFlags { return flags }); err != nil {
		return nil, err
	}

	// Warnings only unless verbose; stdout carries the addresses
	newLogger := func(cfg *config.Config) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, cfg.GetString("logging.format") == "json")
	}
	if err := provideCommon(container, func() string { return flags.ConfigFile }, newLogger); err != nil {
		return nil, err
	}

	// Register cookie engine and tagger
	if err := container.Provide(func(f *factory.TaggerFactory) (*cookie.Engine, error) {
		return f.CreateEngine()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.TaggerFactory, engine *cookie.Engine) *address.Tagger {
		return f.CreateTagger(engine)
	}); err != nil {
		return nil, err
	}

	// Register the address to tag
	if err := container.Provide(func(cfg *config.Config, flags *AddressFlags) (BaseAddress, error) {
		base := flags.Base
		if base == "" {
			base = cfg.GetIdentity().Recipient
		}
		if base == "" {
			return "", fmt.Errorf("no address to tag: set -address or identity.recipient")
		}
		return BaseAddress(base), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// BaseAddress is the untagged address new cookies are embedded in
type BaseAddress string
