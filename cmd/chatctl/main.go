// Command chatctl drives the support chat API from a terminal: the buyer
// widget (chat) and the operator console (queue, takeover, release, send).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/yungbote/supportchat-backend/internal/localstore"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
	"github.com/yungbote/supportchat-backend/pkg/supportclient"
)

// cliEnv supplies flag defaults from the environment.
type cliEnv struct {
	Server  string        `env:"SUPPORTCHAT_SERVER" envDefault:"http://localhost:8080"`
	Token   string        `env:"SUPPORTCHAT_TOKEN"`
	Store   string        `env:"SUPPORTCHAT_STORE"`
	Secret  string        `env:"JWT_SECRET_KEY" envDefault:"defaultsecret"`
	Timeout time.Duration `env:"SUPPORTCHAT_TIMEOUT" envDefault:"15s"`
}

type options struct {
	server    string
	token     string
	storePath string
	timeout   time.Duration
	verbose   bool
	secret    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var defaults cliEnv
	if err := env.Parse(&defaults); err != nil {
		fmt.Fprintln(os.Stderr, "chatctl: ignoring environment:", err)
	}
	opts := &options{secret: defaults.Secret}

	root := &cobra.Command{
		Use:           "chatctl",
		Short:         "Support chat from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", defaults.Server, "API base URL (or set SUPPORTCHAT_SERVER)")
	root.PersistentFlags().StringVar(&opts.token, "token", defaults.Token, "Bearer token (or set SUPPORTCHAT_TOKEN)")
	root.PersistentFlags().StringVar(&opts.storePath, "store", defaults.Store, "Local state file (default: user config dir)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaults.Timeout, "Per-request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newTokenCmd(opts),
		newChatCmd(opts),
		newQueueCmd(opts),
		newTakeOverCmd(opts),
		newReleaseCmd(opts),
		newSendCmd(opts),
	)
	return root
}

func (o *options) client() (*supportclient.Client, error) {
	if o.token == "" {
		return nil, fmt.Errorf("no token: pass --token or set SUPPORTCHAT_TOKEN (see 'chatctl token')")
	}
	return supportclient.New(supportclient.Config{BaseURL: o.server, Token: o.token, Timeout: o.timeout})
}

func (o *options) store() (*localstore.File, error) {
	path := o.storePath
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		path = filepath.Join(dir, "supportchat", "state.json")
	}
	return localstore.OpenFile(path)
}

func (o *options) logger() *logger.Logger {
	if !o.verbose {
		return logger.NewNop()
	}
	log, err := logger.New("development")
	if err != nil {
		return logger.NewNop()
	}
	return log
}

// operatorID keys the unread state by the token subject. The server verifies
// the token; here it only needs to be read.
func (o *options) operatorID() string {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(o.token, &claims); err != nil || claims.Subject == "" {
		return "default"
	}
	return claims.Subject
}
