package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/salesbonus/internal/logreplay"
)

const defaultTimeout = 10 * time.Second

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		file    = flag.String("file", "", "Log file to replay, one message per line")
		channel = flag.String("channel", "", "Channel id to post the lines as")
		token   = flag.String("token", "", "Administrator token, needed with -report")
		report  = flag.Bool("report", false, "Print the bonus report after replaying")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose = flag.Bool("verbose", false, "Log every line")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		logreplay.ShowHelp(os.Stdout)
		return
	}

	if err := logreplay.SetupLogging(os.Stderr, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &logreplay.Config{
		BaseURL: *baseURL,
		File:    *file,
		Channel: *channel,
		Token:   *token,
		Report:  *report,
		Timeout: *timeout,
		Verbose: *verbose,
	}

	stats, err := logreplay.Run(ctx, config, os.Stdout)
	if err != nil {
		os.Stderr.WriteString("Replay failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
	if stats.Failed > 0 {
		stop()
		os.Exit(2)
	}
}
