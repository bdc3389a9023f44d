// Package cli implements talectl, a terminal client for the Talespring API.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talespring/talespring-server/internal/apiclient"
)

const (
	envServer = "TALESPRING_URL"
	envToken  = "TALESPRING_TOKEN"

	defaultServer = "http://localhost:8080"
)

// options holds the global flags shared by every subcommand.
type options struct {
	server  string
	token   string
	json    bool
	verbose bool

	logger *slog.Logger
}

// NewRootCommand builds the talectl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "talectl",
		Short: "Talespring command line client",
		Long: `talectl talks to a Talespring server.

Example usage:
  talectl list --category Fantasy      # Browse the newest fantasy stories
  talectl view <id> --format markdown  # Read a story
  talectl favorite <id>                # Toggle a favorite
  talectl library                      # Show your bookmarks and favorites`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOr(envServer, defaultServer), "server base URL (env "+envServer+")")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv(envToken), "identity token (env "+envToken+")")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "output as JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newListCmd(opts),
		newViewCmd(opts),
		newAuthorCmd(opts),
		newPublishCmd(opts),
		newStatusCmd(opts),
		newToggleCmd(opts, "favorite"),
		newToggleCmd(opts, "bookmark"),
		newLibraryCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// Execute runs talectl with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *options) client() (*apiclient.Client, error) {
	return apiclient.New(o.server,
		apiclient.WithToken(o.token),
		apiclient.WithLogger(o.logger),
	)
}

// render writes v as indented JSON when --json is set, else calls text.
func (o *options) render(w io.Writer, v any, text func(io.Writer)) error {
	if o.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
