package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"NovaWallet/internal/guardian"
	"NovaWallet/internal/intent"

	"github.com/urfave/cli/v2"
)

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Resolve the intent of a conversation; each argument is one user turn",
		ArgsUsage: "MESSAGE [MESSAGE...]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("at least one message is required")
			}
			catalog, err := loadCatalogue(c)
			if err != nil {
				return err
			}
			resolver := intent.NewAccumulator(intent.NewClassifier(intent.NewExtractor(catalog)))
			res := resolver.Resolve(intent.Conversation(c.Args().Slice()))

			if c.Bool("json") {
				return writeJSON(c, res)
			}
			out := c.App.Writer
			fmt.Fprintf(out, "Intent:     %s (%.2f)\n", res.Intent, res.Confidence)
			e := res.Entities
			if e.Amount != nil {
				fmt.Fprintf(out, "Amount:     %g\n", *e.Amount)
			}
			if e.Token != "" {
				fmt.Fprintf(out, "Token:      %s\n", e.Token)
			}
			if e.ToAddress != "" {
				fmt.Fprintf(out, "To:         %s\n", e.ToAddress)
			}
			if e.ChainID != nil {
				suffix := ""
				if e.ChainDefaulted {
					suffix = " (default)"
				}
				fmt.Fprintf(out, "Chain:      %s [%d]%s\n", e.ChainName, *e.ChainID, suffix)
			}
			if e.TradingPair != "" {
				fmt.Fprintf(out, "Pair:       %s\n", e.TradingPair)
			}
			fmt.Fprintf(out, "Ready:      %t\n", res.Ready())
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Run the transaction guardian over a transfer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Sender address", Required: true},
			&cli.StringFlag{Name: "to", Usage: "Recipient address", Required: true},
			&cli.Float64Flag{Name: "amount", Usage: "Amount to send", Required: true},
			&cli.Int64Flag{Name: "chain", Usage: "Chain id (catalogue default when omitted)"},
			&cli.StringFlag{Name: "token", Usage: "Token symbol (chain native symbol when omitted)"},
			&cli.Float64Flag{Name: "balance", Usage: "Known sender balance; balance checks are skipped when unset"},
			&cli.Float64Flag{Name: "gas", Usage: "Known gas estimate"},
		},
		Action: func(c *cli.Context) error {
			catalog, err := loadCatalogue(c)
			if err != nil {
				return err
			}
			chainID := c.Int64("chain")
			if chainID == 0 {
				chainID = catalog.Default().ID
			}
			if _, err := catalog.Require(chainID); err != nil {
				return err
			}

			params := guardian.Params{
				FromAddress: c.String("from"),
				ToAddress:   c.String("to"),
				Amount:      c.Float64("amount"),
				ChainID:     chainID,
				TokenSymbol: c.String("token"),
			}
			if c.IsSet("balance") {
				v := c.Float64("balance")
				params.Balance = &v
			}
			if c.IsSet("gas") {
				v := c.Float64("gas")
				params.GasEstimate = &v
			}

			res := guardian.New(guardian.NewRules(catalog)).Validate(params)
			if c.Bool("json") {
				return writeJSON(c, res)
			}

			out := c.App.Writer
			status := "✅ OK"
			if !res.Valid {
				status = "❌ BLOCKED"
			}
			fmt.Fprintf(out, "%s  severity=%s\n", status, res.Severity)
			for _, msg := range res.Issues {
				fmt.Fprintf(out, "❌ %s\n", msg)
			}
			for _, msg := range res.Warnings {
				fmt.Fprintf(out, "⚠️ %s\n", msg)
			}
			for _, msg := range res.Recommendations {
				fmt.Fprintf(out, "💡 %s\n", msg)
			}
			if res.RequiresDoubleConfirm {
				fmt.Fprintln(out, "🔐 Double confirmation required")
			}
			return nil
		},
	}
}

func chainsCommand() *cli.Command {
	return &cli.Command{
		Name:  "chains",
		Usage: "List supported chains",
		Action: func(c *cli.Context) error {
			catalog, err := loadCatalogue(c)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return writeJSON(c, catalog.Chains)
			}
			def := catalog.Default().ID
			for _, ch := range catalog.Chains {
				var tags []string
				if ch.ID == def {
					tags = append(tags, "default")
				}
				if ch.Testnet {
					tags = append(tags, "testnet")
				}
				if ch.Layer2 {
					tags = append(tags, "L2")
				}
				line := fmt.Sprintf("%-8d %-18s %-6s", ch.ID, ch.Name, ch.NativeSymbol)
				if len(tags) > 0 {
					line += " " + strings.Join(tags, ",")
				}
				fmt.Fprintln(c.App.Writer, strings.TrimRight(line, " "))
			}
			return nil
		},
	}
}

func writeJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
