package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/talespring/talespring-server/internal/auth"
	"github.com/talespring/talespring-server/internal/domain"
)

// newTokenCmd issues a development identity token with a shared key, the
// way the identity provider would.
func newTokenCmd(opts *options) *cobra.Command {
	var (
		identity domain.Identity
		keyHex   string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development identity token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens, err := auth.NewTokenService(keyHex, ttl)
			if err != nil {
				return fmt.Errorf("token key: %w", err)
			}
			token, err := tokens.IssueIdentityToken(identity)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), map[string]string{"token": token}, func(w io.Writer) {
				printf(w, "%s\n", token)
			})
		},
	}
	cmd.Flags().StringVar(&identity.ID, "user", "", "user id")
	cmd.Flags().StringVar(&identity.DisplayName, "name", "", "display name")
	cmd.Flags().StringVar(&keyHex, "key-hex", "", "hex encoded server auth key")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenDuration, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("key-hex")
	return cmd
}
