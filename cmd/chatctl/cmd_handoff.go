package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/supportchat-backend/internal/console"
	"github.com/yungbote/supportchat-backend/pkg/supportclient"
)

// selectThread opens id in a console, failing if it no longer exists.
func selectThread(cmd *cobra.Command, opts *options, arg string) (*console.Console, *supportclient.Thread, error) {
	id, err := parseThreadID(arg)
	if err != nil {
		return nil, nil, err
	}
	c, err := opts.console(console.Config{})
	if err != nil {
		return nil, nil, err
	}
	th, err := c.Select(cmd.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	if th == nil {
		return nil, nil, fmt.Errorf("thread %s no longer exists", id)
	}
	return c, th, nil
}

func newTakeOverCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "takeover <thread-id>",
		Short: "Assign a thread to yourself",
		Long: `Take over a thread as the current operator.

Fails with a conflict if the thread changed between loading it and the
takeover; run it again to take over the current version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := selectThread(cmd, opts, args[0])
			if err != nil {
				return err
			}
			th, err := c.TakeOver(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s v%d\n", th.ID, th.State, th.Version)
			return nil
		},
	}
}

func newReleaseCmd(opts *options) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "release <thread-id>",
		Short: "Hand a thread back to the assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := selectThread(cmd, opts, args[0])
			if err != nil {
				return err
			}
			th, err := c.Release(cmd.Context(), provider)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", th.ID, th.State, th.AIProvider)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Assistant provider: auto, openai, anthropic, grok")
	return cmd
}

func newSendCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send <thread-id> <text>...",
		Short: "Post a message as the operator",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := selectThread(cmd, opts, args[0])
			if err != nil {
				return err
			}
			msg, err := c.Send(cmd.Context(), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s #%d\n", msg.ThreadID, msg.Seq)
			return nil
		},
	}
}
