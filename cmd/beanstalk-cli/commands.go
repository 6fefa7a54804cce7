package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/pior/beanstalk"
	"github.com/pior/beanstalk/proto"
	"github.com/spf13/cobra"
)

func newPutCommand(opts *options) *cobra.Command {
	putCmd := &cobra.Command{
		Use:   "put [data]",
		Short: "Insert a job, data is read from stdin when omitted or \"-\"",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, _ := cmd.Flags().GetUint32("priority")
			delay, _ := cmd.Flags().GetDuration("delay")
			ttr, _ := cmd.Flags().GetDuration("ttr")
			key, _ := cmd.Flags().GetString("key")
			tubes, _ := cmd.Flags().GetStringSlice("partitions")

			body, err := readBody(cmd, args)
			if err != nil {
				return err
			}

			for _, tube := range tubes {
				if err := proto.ValidateTubeName(tube); err != nil {
					return err
				}
			}

			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				if len(tubes) > 0 {
					tube, id, err := client.PutPartitioned(cmd.Context(), key, tubes, body)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "inserted: %d\ntube: %s\n", id, tube)
					return nil
				}

				id, err := client.Put(cmd.Context(), body, priority, delay, ttr)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "inserted:", id)
				return nil
			})
		},
	}
	putCmd.Flags().Uint32("priority", opts.config.DefaultPriority, "Priority, lower is more urgent")
	putCmd.Flags().Duration("delay", opts.config.DefaultDelay, "Delay before the job becomes ready")
	putCmd.Flags().Duration("ttr", opts.config.DefaultTTR, "Time to run")
	putCmd.Flags().String("key", "", "Partition key, with --partitions")
	putCmd.Flags().StringSlice("partitions", nil, "Tubes to spread jobs across by --key, with default priority, delay and ttr")
	return putCmd
}

func newReserveCommand(opts *options) *cobra.Command {
	reserveCmd := &cobra.Command{
		Use:   "reserve",
		Short: "Reserve a job from the watched tubes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wait, _ := cmd.Flags().GetDuration("wait")
			action, _ := cmd.Flags().GetString("action")

			if !slices.Contains([]string{"none", "delete", "bury", "release"}, action) {
				return fmt.Errorf("invalid --action; use none|delete|bury|release")
			}

			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				var job *beanstalk.Job
				var err error
				if cmd.Flags().Changed("wait") {
					job, err = client.ReserveWithTimeout(cmd.Context(), wait)
				} else {
					job, err = client.Reserve(cmd.Context())
				}
				if proto.IsStatus(err, proto.StatusTimedOut) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no job")
					return nil
				}
				if err != nil {
					return err
				}

				printJob(cmd.OutOrStdout(), job)

				switch action {
				case "delete":
					return job.Delete(cmd.Context())
				case "bury":
					return job.BuryDefault(cmd.Context())
				case "release":
					return job.ReleaseDefault(cmd.Context())
				}
				return nil
			})
		},
	}
	reserveCmd.Flags().Duration("wait", 0, "Wait at most this long for a job (default: wait forever)")
	reserveCmd.Flags().String("action", "none", "What to do with the job: none|delete|bury|release")
	return reserveCmd
}

func newDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				return client.Delete(cmd.Context(), id)
			})
		},
	}
}

func newReleaseCommand(opts *options) *cobra.Command {
	releaseCmd := &cobra.Command{
		Use:   "release <id>",
		Short: "Release a job reserved by this connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, _ := cmd.Flags().GetUint32("priority")
			delay, _ := cmd.Flags().GetDuration("delay")

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				return client.Release(cmd.Context(), id, priority, delay)
			})
		},
	}
	releaseCmd.Flags().Uint32("priority", opts.config.DefaultPriority, "New priority")
	releaseCmd.Flags().Duration("delay", opts.config.DefaultDelay, "Delay before the job becomes ready")
	return releaseCmd
}

func newBuryCommand(opts *options) *cobra.Command {
	buryCmd := &cobra.Command{
		Use:   "bury <id>",
		Short: "Bury a job reserved by this connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, _ := cmd.Flags().GetUint32("priority")

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				return client.Bury(cmd.Context(), id, priority)
			})
		},
	}
	buryCmd.Flags().Uint32("priority", opts.config.DefaultPriority, "New priority")
	return buryCmd
}

func newTouchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "touch <id>",
		Short: "Extend the time-to-run of a job reserved by this connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				return client.Touch(cmd.Context(), id)
			})
		},
	}
}

func newKickCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "kick <bound>",
		Short: "Kick up to bound buried (or delayed) jobs of the tube",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bound, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid bound %q: %w", args[0], err)
			}
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				count, err := client.Kick(cmd.Context(), uint32(bound))
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "kicked:", count)
				return nil
			})
		},
	}
}

func newKickJobCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "kick-job <id>",
		Short: "Kick a buried or delayed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				return client.KickJob(cmd.Context(), id)
			})
		},
	}
}

func newPeekCommand(opts *options) *cobra.Command {
	peekCmd := &cobra.Command{
		Use:   "peek [id]",
		Short: "Show a job by id, or the next job of the tube in the given --state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, _ := cmd.Flags().GetString("state")

			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				var job *beanstalk.Job
				var err error

				switch {
				case len(args) == 1:
					id, perr := parseID(args[0])
					if perr != nil {
						return perr
					}
					job, err = client.Peek(cmd.Context(), id)
				case state == "ready":
					job, err = client.PeekReady(cmd.Context())
				case state == "delayed":
					job, err = client.PeekDelayed(cmd.Context())
				case state == "buried":
					job, err = client.PeekBuried(cmd.Context())
				default:
					return fmt.Errorf("invalid --state; use ready|delayed|buried")
				}

				if proto.IsStatus(err, proto.StatusNotFound) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no job")
					return nil
				}
				if err != nil {
					return err
				}

				printJob(cmd.OutOrStdout(), job)
				return nil
			})
		},
	}
	peekCmd.Flags().String("state", "ready", "Job state when no id is given: ready|delayed|buried")
	return peekCmd
}

func newStatsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show server statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				stats, err := client.Stats(cmd.Context())
				if err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}
}

func newStatsJobCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats-job <id>",
		Short: "Show job statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				stats, err := client.StatsJob(cmd.Context(), id)
				if err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}
}

func newStatsTubeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats-tube <tube>",
		Short: "Show tube statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := proto.ValidateTubeName(args[0]); err != nil {
				return err
			}
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				stats, err := client.StatsTube(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}
}

func newTubesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tubes",
		Short: "List all tubes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				tubes, err := client.ListTubes(cmd.Context())
				if err != nil {
					return err
				}
				printList(cmd.OutOrStdout(), tubes)
				return nil
			})
		},
	}
}

func newWatchedCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watched",
		Short: "List the tubes watched by the connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				tubes, err := client.ListTubesWatched(cmd.Context())
				if err != nil {
					return err
				}
				printList(cmd.OutOrStdout(), tubes)
				return nil
			})
		},
	}
}

func newUsedCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "used",
		Short: "Show the tube in use by the connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				tube, err := client.ListTubeUsed(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), tube)
				return nil
			})
		},
	}
}

func newPauseCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <tube> <delay>",
		Short: "Delay new reservations from a tube, e.g. pause emails 5m",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := proto.ValidateTubeName(args[0]); err != nil {
				return err
			}
			delay, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("invalid delay %q: %w", args[1], err)
			}
			return withClient(cmd.Context(), opts, func(client *beanstalk.Client) error {
				return client.PauseTube(cmd.Context(), args[0], delay)
			})
		},
	}
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid job id %q: %w", s, err)
	}
	return id, nil
}

func readBody(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		return []byte(args[0]), nil
	}
	body, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return body, nil
}

func printJob(w io.Writer, job *beanstalk.Job) {
	_, _ = fmt.Fprintln(w, "id:", job.ID())
	if utf8.Valid(job.Body()) {
		_, _ = fmt.Fprintf(w, "body: %s\n", job.Body())
	} else {
		_, _ = fmt.Fprintf(w, "body: %d bytes\n", len(job.Body()))
	}
}

func printStats(w io.Writer, stats map[string]string) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s: %s\n", k, stats[k])
	}
}

func printList(w io.Writer, items []string) {
	for _, item := range items {
		_, _ = fmt.Fprintln(w, item)
	}
}
