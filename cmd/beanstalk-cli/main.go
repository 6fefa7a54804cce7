// Command beanstalk-cli talks to a beanstalkd server.
//
// Connection settings come from BEANSTALK_HOST, BEANSTALK_PORT and
// BEANSTALK_CONNECT_TIMEOUT, overridden by the --host, --port and --timeout
// flags.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
