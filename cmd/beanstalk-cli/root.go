package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pior/beanstalk"
	"github.com/pior/beanstalk/proto"
	"github.com/spf13/cobra"
)

// options are shared by all subcommands through the persistent flags.
type options struct {
	config   beanstalk.Config
	tube     string
	logLevel string
}

// newRootCommand constructs the root command and registers every subcommand.
func newRootCommand() *cobra.Command {
	config := beanstalk.DefaultConfig()
	beanstalk.ConfigFromEnv(&config)
	opts := &options{config: config}

	root := &cobra.Command{
		Use:   "beanstalk-cli",
		Short: "beanstalkd client",
		Long: `Command line client for beanstalkd.

Producer commands:
  put         Insert a job
  kick        Kick buried or delayed jobs of the tube
  kick-job    Kick a single job
  pause       Pause new reservations from a tube

Worker commands:
  reserve     Reserve a job, optionally deleting, burying or releasing it
  delete      Delete a job
  release     Release a reserved job
  bury        Bury a reserved job
  touch       Extend the time-to-run of a reserved job

Inspection:
  peek        Show a job without reserving it
  stats       Server statistics
  stats-job   Job statistics
  stats-tube  Tube statistics
  tubes       List all tubes
  used        Show the tube in use
  watched     List watched tubes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.tube != "" {
				if err := proto.ValidateTubeName(opts.tube); err != nil {
					return err
				}
			}

			level, err := parseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			opts.config.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.config.Host, "host", config.Host, "Server host (BEANSTALK_HOST)")
	flags.IntVar(&opts.config.Port, "port", config.Port, "Server port (BEANSTALK_PORT)")
	flags.DurationVar(&opts.config.ConnectTimeout, "timeout", config.ConnectTimeout, "Connect timeout (BEANSTALK_CONNECT_TIMEOUT)")
	flags.StringVarP(&opts.tube, "tube", "t", "", "Tube to use and watch instead of the server default")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug|info|warn|error")

	root.AddCommand(
		newPutCommand(opts),
		newReserveCommand(opts),
		newDeleteCommand(opts),
		newReleaseCommand(opts),
		newBuryCommand(opts),
		newTouchCommand(opts),
		newKickCommand(opts),
		newKickJobCommand(opts),
		newPeekCommand(opts),
		newStatsCommand(opts),
		newStatsJobCommand(opts),
		newStatsTubeCommand(opts),
		newTubesCommand(opts),
		newUsedCommand(opts),
		newWatchedCommand(opts),
		newPauseCommand(opts),
	)
	return root
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid --log-level %q; use debug|info|warn|error", level)
}

// withClient connects, selects the --tube if any, runs fn and closes the connection.
func withClient(ctx context.Context, opts *options, fn func(*beanstalk.Client) error) error {
	client, err := beanstalk.Connect(ctx, opts.config)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if opts.tube != "" {
		if err := selectTube(ctx, client, opts.tube); err != nil {
			return err
		}
	}
	return fn(client)
}

// selectTube uses and watches tube exclusively.
func selectTube(ctx context.Context, client *beanstalk.Client, tube string) error {
	if _, err := client.Use(ctx, tube); err != nil {
		return fmt.Errorf("use %s: %w", tube, err)
	}
	if _, err := client.Watch(ctx, tube); err != nil {
		return fmt.Errorf("watch %s: %w", tube, err)
	}
	if tube != "default" {
		if _, err := client.Ignore(ctx, "default"); err != nil {
			return fmt.Errorf("ignore default: %w", err)
		}
	}
	return nil
}
