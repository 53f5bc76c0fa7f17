package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-langganan/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var claims auth.Claims
	var ttl time.Duration
	var secret, issuer, audience string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("AUTH_JWT_SECRET")
			}
			if claims.UserID == "" {
				return errors.New("--sub is required")
			}
			v, err := auth.NewVerifier(auth.VerifierConfig{
				Secret:   secret,
				Issuer:   envOr(issuer, "AUTH_JWT_ISSUER"),
				Audience: envOr(audience, "AUTH_JWT_AUDIENCE"),
			})
			if err != nil {
				return err
			}
			token, err := v.Sign(claims, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&claims.UserID, "sub", "", "user id placed in the subject claim")
	cmd.Flags().StringVar(&claims.Role, "role", "", "role claim, e.g. admin")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret (defaults to $AUTH_JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", "", "issuer claim (defaults to $AUTH_JWT_ISSUER)")
	cmd.Flags().StringVar(&audience, "audience", "", "audience claim (defaults to $AUTH_JWT_AUDIENCE)")
	return cmd
}

func envOr(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}
