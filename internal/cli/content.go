package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/talespring/talespring-server/internal/domain"
)

func newListCmd(opts *options) *cobra.Command {
	var category, query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			defer client.Close()

			items, err := client.ListContent(cmd.Context(), category, query)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), items, func(w io.Writer) { printItems(w, items) })
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "category filter (default all)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "text filter on title and description")
	return cmd
}

func newAuthorCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "author <author-id>",
		Short: "List every story by an author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			defer client.Close()

			items, err := client.ListByAuthor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), items, func(w io.Writer) { printItems(w, items) })
		},
	}
}

func newViewCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "view <content-id>",
		Short: "Read a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			defer client.Close()

			item, err := client.View(cmd.Context(), args[0], format)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), item, func(w io.Writer) {
				printf(w, "%s\nby %s · %s · %d reads\n\n%s\n", item.Title, item.AuthorDisplayName, item.Category, item.ReadCount, item.Body)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "body format (html, markdown)")
	return cmd
}

func newPublishCmd(opts *options) *cobra.Command {
	var (
		draft    domain.ContentDraft
		category string
		bodyFile string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a new story",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := readBody(cmd.InOrStdin(), bodyFile)
			if err != nil {
				return err
			}
			draft.Body = body
			draft.Category = domain.Category(category)

			client, err := opts.client()
			if err != nil {
				return err
			}
			defer client.Close()

			item, err := client.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), item, func(w io.Writer) {
				printf(w, "published %s\n", item.ID)
			})
		},
	}
	cmd.Flags().StringVar(&draft.Title, "title", "", "story title")
	cmd.Flags().StringVar(&draft.Description, "description", "", "short description")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().StringVar(&draft.CoverImageRef, "cover", "", "cover image reference")
	cmd.Flags().StringVar(&bodyFile, "body-file", "-", "HTML body file, - for stdin")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func readBody(stdin io.Reader, path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(raw), nil
}

func printItems(w io.Writer, items []*domain.ContentItem) {
	if len(items) == 0 {
		printf(w, "no stories\n")
		return
	}
	for _, item := range items {
		printf(w, "%-24s %-20s %s (%s)\n", item.ID, item.Category, item.Title, item.AuthorDisplayName)
	}
}
