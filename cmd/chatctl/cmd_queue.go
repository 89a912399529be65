package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/supportchat-backend/internal/console"
	"github.com/yungbote/supportchat-backend/internal/unread"
	"github.com/yungbote/supportchat-backend/pkg/supportclient"
)

func (o *options) console(cfg console.Config) (*console.Console, error) {
	client, err := o.client()
	if err != nil {
		return nil, err
	}
	store, err := o.store()
	if err != nil {
		return nil, err
	}
	log := o.logger()
	cfg.Log = log
	return console.New(client, unread.NewTracker(store, o.operatorID(), log), cfg), nil
}

func newQueueCmd(opts *options) *cobra.Command {
	var (
		state    string
		mine     bool
		limit    int
		watch    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List the operator queue",
		Long: `List threads in the operator queue. Unread threads are marked with '*'.

States: pending, served, admin (default), ai, all.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &printer{w: cmd.OutOrStdout()}
			c, err := opts.console(console.Config{
				Queue:        supportclient.QueueOptions{State: state, AssignedToMe: mine, Limit: limit},
				PollInterval: interval,
				OnQueue: func(items []console.Item) {
					if watch {
						out.mu.Lock()
						printQueue(out.w, items)
						out.mu.Unlock()
					}
				},
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if !watch {
				if err := c.RefreshQueue(ctx); err != nil {
					return err
				}
				printQueue(out.w, c.Queue())
				return nil
			}
			if err := c.RefreshQueue(ctx); err != nil {
				return err
			}
			c.Start(ctx)
			defer c.Stop()
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "Queue filter")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only threads assigned to me")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep polling and reprint on change")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval with --watch (default 2.5s)")
	return cmd
}

func printQueue(w io.Writer, items []console.Item) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tTHREAD\tSTATE\tCONTEXT\tUPDATED\tVERSION")
	for _, it := range items {
		mark := ""
		if it.Unread {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s:%s\t%s\t%d\n",
			mark, it.ID, it.State, it.ContextType, it.ContextID,
			it.UpdatedAt.Local().Format(time.DateTime), it.Version)
	}
	_ = tw.Flush()
}

func parseThreadID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid thread id %q", arg)
	}
	return id, nil
}
