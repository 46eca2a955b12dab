package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mikey/tagmda/internal/address"
	"github.com/mikey/tagmda/internal/config"
	"github.com/mikey/tagmda/internal/cookie"
	"github.com/mikey/tagmda/internal/di"
	"github.com/mikey/tagmda/internal/metrics"
	"go.uber.org/zap"
)

// errInvalid makes the process exit 1 without an error message
var errInvalid = errors.New("address did not verify")

func main() {
	flags, err := di.ParseAddressFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	// Build the dependency injection container
	container, err := di.BuildAddressContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	err = container.Invoke(func(
		logger *zap.Logger,
		engine *cookie.Engine,
		tagger *address.Tagger,
		base di.BaseAddress,
		metricsCfg config.MetricsConfig,
	) error {
		defer logger.Sync()

		err := run(flags, engine, tagger, string(base), os.Stdin, os.Stdout, time.Now())
		if mErr := metrics.WriteTextfile(metricsCfg.Textfile); mErr != nil {
			logger.Error("Failed to export metrics", zap.Error(mErr))
		}
		return err
	})
	if errors.Is(err, errInvalid) {
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	flags *di.AddressFlags,
	engine *cookie.Engine,
	tagger *address.Tagger,
	base string,
	in io.Reader,
	out io.Writer,
	now time.Time,
) error {
	var (
		addr string
		kind address.Kind
		err  error
	)

	switch {
	case flags.Check != "":
		return check(tagger, flags.Check, flags.CheckSender, out, now)
	case flags.Fingerprint:
		return fingerprint(engine, in, out)
	case flags.Confirm:
		pid := flags.PID
		if pid == 0 {
			pid = os.Getpid()
		}
		kind = address.KindConfirm
		addr, err = tagger.ConfirmAddress(base, now.Unix(), pid, "")
	case flags.Dated:
		kind = address.KindDated
		if flags.Timeout != "" {
			addr, err = tagger.DatedAddressFor(base, now, flags.Timeout)
		} else {
			addr, err = tagger.DatedAddress(base, now)
		}
	case flags.Sender != "":
		kind = address.KindSender
		addr, err = tagger.SenderAddress(base, flags.Sender)
	case flags.Keyword != "":
		kind = address.KindKeyword
		addr, err = tagger.KeywordAddress(base, flags.Keyword)
	}
	if err != nil {
		return fmt.Errorf("failed to build %s address: %w", kind, err)
	}

	metrics.AddressesGenerated.WithLabelValues(kind.String()).Inc()
	_, err = fmt.Fprintln(out, addr)
	return err
}

func check(tagger *address.Tagger, addr, sender string, out io.Writer, now time.Time) error {
	res, err := tagger.Check(addr, sender, now)
	if err != nil {
		return err
	}

	status := "invalid"
	switch {
	case res.Kind == address.KindNone:
		status = "untagged"
	case res.Valid && res.Expired:
		status = "expired"
	case res.Valid:
		status = "valid"
	}
	metrics.AddressChecks.WithLabelValues(res.Kind.String(), status).Inc()

	line := fmt.Sprintf("%s %s", res.Kind, status)
	if !res.Expires.IsZero() {
		line += " expires=" + res.Expires.UTC().Format(time.RFC3339)
	}
	if _, err := fmt.Fprintln(out, line); err != nil {
		return err
	}
	if status != "valid" {
		return errInvalid
	}
	return nil
}

func fingerprint(engine *cookie.Engine, in io.Reader, out io.Writer) error {
	var items []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		items = append(items, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	_, err := fmt.Fprintln(out, engine.Fingerprint(items))
	return err
}
