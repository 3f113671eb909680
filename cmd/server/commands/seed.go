package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/peer-payments/internal/auth"
	"github.com/sheikh-saqib/peer-payments/internal/seed"
)

var tokenTTL time.Duration

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo accounts, a sample transfer and a pending request",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		d, err := buildDeps(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer d.close(logger)

		res, err := seed.Run(cmd.Context(), d.ledger, logger)
		if err != nil {
			return err
		}

		if cfg.JWTSecret == "" {
			return nil
		}
		verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
		out := cmd.OutOrStdout()
		for _, acc := range res.Accounts {
			token, err := verifier.Issue(acc.ID, acc.Email, tokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%s\t%s\n", acc.Email, acc.Balance.StringFixed(2), token)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the demo bearer tokens printed after seeding")
}
