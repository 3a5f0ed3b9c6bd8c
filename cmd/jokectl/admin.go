package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jokeledger/core/events"
	"jokeledger/gateway/middleware"
	"jokeledger/native/jokes"
)

func eventsCommand() *cobra.Command {
	var after uint64
	var limit int
	var follow bool
	var cursor string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Page through the event journal, or follow the live stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if follow {
				return c.Stream(cmd.Context(), cursor, func(rec events.Record) error {
					return printJSON(cmd.OutOrStdout(), rec)
				})
			}
			page, err := c.Events(cmd.Context(), after, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().Uint64Var(&after, "after", 0, "return events with a sequence above this")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum events to return")
	cmd.Flags().BoolVar(&follow, "follow", false, "stream live events over a websocket")
	cmd.Flags().StringVar(&cursor, "cursor", "", "with --follow, replay retained events after this cursor")
	return cmd
}

func creditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "credit <address> <amount>",
		Short: "Fund an account (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			balance, err := c.Credit(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"account": args[0], "balance": balance.String()})
		},
	}
}

func pauseCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "pause [on|off]",
		Short:     "Show or change whether ledger writes are paused (admin)",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			var paused bool
			if len(args) == 0 {
				paused, err = c.Paused(cmd.Context())
			} else {
				switch strings.ToLower(args[0]) {
				case "on":
					paused, err = c.SetPaused(cmd.Context(), true)
				case "off":
					paused, err = c.SetPaused(cmd.Context(), false)
				default:
					return fmt.Errorf("expected on or off, got %q", args[0])
				}
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"paused": paused})
		},
	}
}

func tokenCommand() *cobra.Command {
	var secret, secretEnv, issuer, audience string
	var scopes []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <subject-address>",
		Short: "Mint an HS256 bearer token for local development",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, err := jokes.ParseAddress(args[0])
			if err != nil {
				return fmt.Errorf("subject must be an address: %w", err)
			}
			if strings.TrimSpace(secret) == "" {
				secret = os.Getenv(secretEnv)
			}
			auth := middleware.NewAuthenticator(middleware.AuthConfig{
				HMACSecret: secret,
				Issuer:     issuer,
				Audience:   audience,
			}, nil)
			token, err := auth.IssueToken(jokes.FormatAddress(subject), scopes, ttl)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), token+"\n")
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret; falls back to --secret-env")
	cmd.Flags().StringVar(&secretEnv, "secret-env", "JOKE_AUTH_SECRET", "environment variable holding the HMAC secret")
	cmd.Flags().StringVar(&issuer, "issuer", "jokeledger", "iss claim")
	cmd.Flags().StringVar(&audience, "audience", "", "aud claim")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "scopes to grant, e.g. admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
