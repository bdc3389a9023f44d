package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/engagement"
)

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <content-id>",
		Short: "Show whether you favorited or bookmarked a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := client.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), status, func(w io.Writer) {
				printf(w, "favorite: %s\nbookmark: %s\n",
					domain.PresenceOf(status.Favorite), domain.PresenceOf(status.Bookmark))
			})
		},
	}
}

// toggleResult is the JSON output of a toggle.
type toggleResult struct {
	ContentID  string              `json:"content_id"`
	Kind       domain.RelationKind `json:"kind"`
	Optimistic domain.Presence     `json:"optimistic"`
	Final      engagement.State    `json:"final"`
	Message    string              `json:"message,omitempty"`
}

func newToggleCmd(opts *options, name string) *cobra.Command {
	kind := domain.RelationKind(name)

	return &cobra.Command{
		Use:   name + " <content-id>",
		Short: "Toggle a " + name,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			contentID := args[0]

			client, err := opts.client()
			if err != nil {
				return err
			}
			defer client.Close()

			// The controller needs the caller's id only to key its state; the
			// server derives the real identity from the token.
			userID := "me"
			if opts.token == "" {
				userID = ""
			}

			result := toggleResult{ContentID: contentID, Kind: kind}
			ctrl := engagement.New(client,
				engagement.WithLogger(opts.logger),
				engagement.WithNotifier(func(n engagement.Notification) {
					result.Message = n.Message
				}),
			)

			if userID != "" {
				status, err := client.Status(ctx, contentID)
				if err != nil {
					return err
				}
				ctrl.Seed(domain.RelationKey{UserID: userID, ContentID: contentID, Kind: kind}, domain.PresenceOf(status.Has(kind)))
			}

			pending, err := ctrl.Toggle(ctx, userID, contentID, kind)
			if err != nil {
				return err
			}
			result.Optimistic = pending.Optimistic().Value
			if !opts.json {
				printf(cmd.OutOrStdout(), "%s %s: %s\n", name, contentID, result.Optimistic)
			}

			result.Final, err = pending.Wait()
			if err != nil {
				if !opts.json {
					printf(cmd.OutOrStdout(), "%s %s: reverted to %s\n", name, contentID, result.Final.Value)
				}
				return err
			}

			return opts.render(cmd.OutOrStdout(), result, func(w io.Writer) {
				printf(w, "%s %s: %s (confirmed)\n", name, contentID, result.Final.Value)
			})
		},
	}
}

func newLibraryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "library",
		Short: "Show your bookmarked and favorited stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			defer client.Close()

			view, err := client.Library(cmd.Context())
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), view, func(w io.Writer) {
				printf(w, "Bookmarked\n")
				printItems(w, view.Bookmarked)
				printf(w, "\nFavorited\n")
				printItems(w, view.Favorited)
			})
		},
	}
}
