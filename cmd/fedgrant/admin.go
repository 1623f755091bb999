package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/fedgrant/internal/app"
	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
	"github.com/dropDatabas3/fedgrant/internal/security/password"
	tokens "github.com/dropDatabas3/fedgrant/internal/security/token"
	"github.com/dropDatabas3/fedgrant/internal/store"
	"github.com/dropDatabas3/fedgrant/internal/validation"
)

// openStore connects to the configured backend without building the rest
// of the service.
func openStore(ctx context.Context, opts *rootOptions) (store.AdapterConnection, error) {
	sc := opts.cfg.Storage
	return store.OpenAdapter(ctx, store.AdapterConfig{
		Name:         sc.Driver,
		DSN:          sc.DSN,
		MaxOpenConns: sc.Postgres.MaxOpenConns,
		MaxIdleConns: sc.Postgres.MaxIdleConns,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			conn, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer conn.Close()

			res, err := app.Migrate(ctx, conn)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"applied":     res.Applied,
				"skipped":     res.Skipped,
				"duration_ms": res.Duration.Milliseconds(),
			})
		},
	}
}

func newClientCmd(opts *rootOptions) *cobra.Command {
	clientCmd := &cobra.Command{Use: "client", Short: "Manage OAuth clients"}

	var (
		in         repository.ClientInput
		secret     string
		scopes     string
		grantTypes string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a client; prints the secret when one is generated",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.ClientID == "" {
				return fmt.Errorf("--id is required")
			}
			clientScopes, err := validation.ClientScopes(splitCSV(scopes))
			if err != nil {
				return fmt.Errorf("--scopes: %w", err)
			}
			generated := secret == ""
			if generated {
				s, err := tokens.GenerateOpaqueToken(32)
				if err != nil {
					return err
				}
				secret = s
			}
			hash, err := password.Hash(password.Default, secret)
			if err != nil {
				return err
			}
			in.SecretHash = hash
			in.Scopes = clientScopes
			in.GrantTypes = splitCSV(grantTypes)

			conn, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer conn.Close()

			c, err := conn.Clients().Create(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create client: %w", err)
			}
			out := map[string]any{
				"client_id":   c.ClientID,
				"scopes":      c.Scopes,
				"grant_types": c.GrantTypes,
			}
			if generated {
				out["client_secret"] = secret
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	createCmd.Flags().StringVar(&in.ClientID, "id", "", "public client id")
	createCmd.Flags().StringVar(&in.Name, "name", "", "display name")
	createCmd.Flags().StringVar(&secret, "secret", "", "client secret (generated when empty)")
	createCmd.Flags().StringVar(&scopes, "scopes", "", "comma separated scopes the client may request")
	createCmd.Flags().StringVar(&grantTypes, "grants", "facebook,refresh_token", "comma separated grant types")
	createCmd.Flags().IntVar(&in.AccessTokenTTL, "access-ttl", 0, "access token TTL override in seconds")
	createCmd.Flags().IntVar(&in.RefreshTokenTTL, "refresh-ttl", 0, "refresh token TTL override in seconds")

	clientCmd.AddCommand(createCmd)
	return clientCmd
}

func newIdentityCmd(opts *rootOptions) *cobra.Command {
	identityCmd := &cobra.Command{Use: "identity", Short: "Manage links between provider accounts and users"}

	var userID, provider, subject string
	linkCmd := &cobra.Command{
		Use:   "link",
		Short: "Link a provider account to a local user",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer conn.Close()

			id, err := conn.Identities().Link(cmd.Context(), userID, provider, subject)
			if err != nil {
				return fmt.Errorf("link identity: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), id)
		},
	}
	linkCmd.Flags().StringVar(&userID, "user", "", "local user id")
	linkCmd.Flags().StringVar(&provider, "provider", "facebook", "provider name")
	linkCmd.Flags().StringVar(&subject, "subject", "", "account id at the provider")

	identityCmd.AddCommand(linkCmd)
	return identityCmd
}

func newHashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret <secret>",
		Short: "Print the argon2id hash of a client secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := password.Hash(password.Default, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
