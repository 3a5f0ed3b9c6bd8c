package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jokeledger/sdk/client"
)

const (
	programName     = "jokectl"
	defaultEndpoint = "http://localhost:8080"
)

var globalFlags = struct {
	endpoint string
	caller   string
	token    string
	apiKey   string
}{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           programName,
		Short:         "Command line client for the joke ledger",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&globalFlags.endpoint, "endpoint", envOr("JOKECTL_ENDPOINT", defaultEndpoint), "ledger API base URL")
	root.PersistentFlags().StringVar(&globalFlags.caller, "caller", os.Getenv("JOKECTL_CALLER"), "caller address sent as X-Caller when the server runs without auth")
	root.PersistentFlags().StringVar(&globalFlags.token, "token", os.Getenv("JOKECTL_TOKEN"), "bearer token")
	root.PersistentFlags().StringVar(&globalFlags.apiKey, "api-key", os.Getenv("JOKECTL_API_KEY"), "API key used for rate limiting")

	root.AddCommand(
		submitCommand(),
		votePendingCommand(),
		finalizeCommand(),
		pendingCommand(),
		jokesCommand(),
		jokeCommand(),
		voteJokeCommand(),
		listCommand(),
		buyCommand(),
		useCommand(),
		fuseCommand(),
		exchangeCommand(),
		accountCommand(),
		statsCommand(),
		eventsCommand(),
		creditCommand(),
		pauseCommand(),
		tokenCommand(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func newClient() (*client.Client, error) {
	return client.New(globalFlags.endpoint,
		client.WithCaller(globalFlags.caller),
		client.WithToken(globalFlags.token),
		client.WithAPIKey(globalFlags.apiKey),
	)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func parseIDs(raw []string) ([]uint64, error) {
	out := make([]uint64, 0, len(raw))
	for _, item := range raw {
		id, err := parseID(item)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return v, nil
}
