package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/guildbot/internal/dependencies/ids"
	"github.com/mcoot/guildbot/internal/services/auth"
)

func newHashTokenCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "hash-token [token]",
		Short: "Hash an admin API token for ADMIN_TOKEN_HASH",
		Long: `Hash an admin API token for ADMIN_TOKEN_HASH.

Without an argument a random token is generated and printed once. With --save
the token is also written to the token file used by the query commands.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TokenResult
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				token = ids.New().Token()
				result.Token = token
			}

			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			result.Hash = hash

			if save {
				if err := cfg.SaveToken(token); err != nil {
					return err
				}
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Write the token to the token file")

	return cmd
}
