package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"NovaWallet/sdk/go/nova"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Send one message to a running novad",
		ArgsUsage: "MESSAGE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "novad base URL",
				EnvVars: []string{"NOVA_SERVER_URL"},
			},
			&cli.StringFlag{
				Name:    "session",
				Usage:   "Session id; a new one is generated when empty",
				EnvVars: []string{"NOVA_SESSION_ID"},
			},
			&cli.StringFlag{
				Name:    "address",
				Usage:   "Connected wallet address",
				EnvVars: []string{"NOVA_WALLET_ADDRESS"},
			},
			&cli.Int64Flag{
				Name:  "chain",
				Usage: "Connected wallet chain id",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 60 * time.Second,
				Usage: "Request timeout",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("message is required")
			}
			session := c.String("session")
			if session == "" {
				session = uuid.NewString()
			}
			address := strings.TrimSpace(c.String("address"))
			client, err := nova.NewClient(c.String("server"), nil)
			if err != nil {
				return err
			}
			req := nova.ChatRequest{
				SessionID: session,
				Message:   strings.Join(c.Args().Slice(), " "),
				Wallet: nova.WalletContext{
					Connected: address != "",
					Address:   address,
					ChainID:   c.Int64("chain"),
				},
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()
			reply, err := client.Chat(ctx, req)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return writeJSON(c, reply)
			}
			fmt.Fprintln(c.App.Writer, reply.Message)
			fmt.Fprintf(c.App.ErrWriter, "\n[session=%s intent=%s kind=%s]\n", session, reply.Intent, reply.Kind)
			return nil
		},
	}
}
