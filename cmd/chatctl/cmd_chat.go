package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/supportchat-backend/internal/widget"
	"github.com/yungbote/supportchat-backend/pkg/supportclient"
)

// printer serializes output from the poll goroutine and the input loop.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func newChatCmd(opts *options) *cobra.Command {
	var (
		contextType string
		scope       string
		interval    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the support chat as a user",
		Long: `Open (or resume) the support thread for this machine and chat on stdin.

Each line is sent as a message. Special lines:
  /admin [note] - ask for a human operator
  /quit         - leave the chat`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			store, err := opts.store()
			if err != nil {
				return err
			}
			out := &printer{w: cmd.OutOrStdout()}
			w := widget.New(client, store, widget.Config{
				ContextType:  supportclient.ContextType(contextType),
				Scope:        scope,
				PollInterval: interval,
				Log:          opts.logger(),
				OnMessage: func(m supportclient.Message) {
					out.Printf("[%s] %s\n", m.SenderRole, m.Text)
				},
				OnThread: func(th supportclient.Thread) {
					out.Printf("-- %s\n", describeState(th.State))
				},
			})
			defer w.Close()

			ctx := cmd.Context()
			th, err := w.Open(ctx)
			if err != nil {
				return err
			}
			out.Printf("-- thread %s\n", th.ID)

			lines := make(chan string)
			go func() {
				defer close(lines)
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					lines <- sc.Text()
				}
			}()

			for {
				var line string
				var ok bool
				select {
				case <-ctx.Done():
					return nil
				case line, ok = <-lines:
				}
				if !ok {
					return nil
				}
				line = strings.TrimSpace(line)
				switch {
				case line == "":
					continue
				case line == "/quit":
					return nil
				case line == "/admin" || strings.HasPrefix(line, "/admin "):
					if _, err := w.RequestAdmin(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/admin"))); err != nil {
						out.Printf("!! handoff failed: %v\n", err)
					}
				default:
					w.SetDraft(line)
					if _, err := w.Send(ctx); err != nil {
						out.Printf("!! not sent: %v\n", err)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&contextType, "context-type", string(supportclient.ContextRequest), "Context type: job or request")
	cmd.Flags().StringVar(&scope, "scope", "default", "Names the remembered conversation")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (default 2.5s)")
	return cmd
}

func describeState(s supportclient.ThreadState) string {
	switch s {
	case supportclient.StateAdminPending:
		return "waiting for an operator"
	case supportclient.StateAdminServed:
		return "an operator has joined"
	default:
		return "assistant"
	}
}
