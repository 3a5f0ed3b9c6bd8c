package main

import (
	"github.com/spf13/cobra"

	"jokeledger/sdk/client"
)

func submitCommand() *cobra.Command {
	var name, content, ref string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a joke for community voting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			id, err := c.Submit(cmd.Context(), name, content, ref)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]uint64{"id": id})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "joke title")
	cmd.Flags().StringVar(&content, "content", "", "joke text")
	cmd.Flags().StringVar(&ref, "ref", "", "off-chain content reference")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("content")
	_ = cmd.MarkFlagRequired("ref")
	return cmd
}

func votePendingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <pending-id>",
		Short: "Vote for a pending submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			score, err := c.VotePending(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]uint64{"score": score})
		},
	}
}

func finalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "finalize <pending-id>",
		Short: "Approve or reject a pending submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			res, err := c.Finalize(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func pendingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pending [id]",
		Short: "Show one pending submission or list all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				list, err := c.PendingJokes(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), list)
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			pending, err := c.PendingJoke(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pending)
		},
	}
}

func jokesCommand() *cobra.Command {
	var filter client.JokeFilter
	cmd := &cobra.Command{
		Use:   "jokes",
		Short: "List approved jokes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			list, err := c.Jokes(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().StringVar(&filter.Owner, "owner", "", "only jokes owned by this address")
	cmd.Flags().BoolVar(&filter.Listed, "listed", false, "only jokes listed for sale")
	cmd.Flags().BoolVar(&filter.ActiveOnly, "active", false, "skip fused jokes")
	return cmd
}

func jokeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "joke <id>",
		Short: "Show an approved joke",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			joke, err := c.Joke(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), joke)
		},
	}
}

func voteJokeCommand() *cobra.Command {
	var payment string
	cmd := &cobra.Command{
		Use:   "vote-joke <id>",
		Short: "Cast a paid dadness vote on an approved joke",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(payment)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			score, err := c.VoteApproved(cmd.Context(), id, amount)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]uint64{"score": score})
		},
	}
	cmd.Flags().StringVar(&payment, "payment", "0", "payment in base units; must cover the joke value")
	return cmd
}

func listCommand() *cobra.Command {
	var price string
	cmd := &cobra.Command{
		Use:   "list <id>",
		Short: "Set the asking price of a joke (0 withdraws it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(price)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			joke, err := c.ListForSale(cmd.Context(), id, amount)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), joke)
		},
	}
	cmd.Flags().StringVar(&price, "price", "", "asking price in base units")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func buyCommand() *cobra.Command {
	var payment string
	cmd := &cobra.Command{
		Use:   "buy <id>",
		Short: "Buy a listed joke",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(payment)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			joke, err := c.Buy(cmd.Context(), id, amount)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), joke)
		},
	}
	cmd.Flags().StringVar(&payment, "payment", "", "payment in base units")
	_ = cmd.MarkFlagRequired("payment")
	return cmd
}

func useCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Tell one of your jokes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			joke, err := c.Use(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), joke)
		},
	}
}

func fuseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fuse <joke-a> <joke-b>",
		Short: "Fuse two jokes of the same tier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			id, err := c.Fuse(cmd.Context(), ids[0], ids[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]uint64{"id": id})
		},
	}
}

func exchangeCommand() *cobra.Command {
	var give, take []string
	var counterparty string
	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Swap jokes with another owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			giveIDs, err := parseIDs(give)
			if err != nil {
				return err
			}
			takeIDs, err := parseIDs(take)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.Exchange(cmd.Context(), giveIDs, takeIDs, counterparty); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"give": giveIDs, "take": takeIDs, "counterparty": counterparty})
		},
	}
	cmd.Flags().StringSliceVar(&give, "give", nil, "joke ids you hand over")
	cmd.Flags().StringSliceVar(&take, "take", nil, "joke ids you receive")
	cmd.Flags().StringVar(&counterparty, "counterparty", "", "owner of the taken jokes")
	_ = cmd.MarkFlagRequired("give")
	_ = cmd.MarkFlagRequired("take")
	_ = cmd.MarkFlagRequired("counterparty")
	return cmd
}

func accountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "account <address>",
		Short: "Show balance and jokes of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			account, err := c.Account(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), account)
		},
	}
}

func statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ledger totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}
