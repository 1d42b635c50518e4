package main

import (
	"fmt"
	"log"
	"os"

	"NovaWallet/internal/web3"

	"github.com/urfave/cli/v2"
)

var (
	// 由 ldflags 注入。
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "novactl",
		Usage:   "Nova wallet assistant command-line tool",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Path to a chain catalogue YAML (built-in when empty)",
				EnvVars: []string{"NOVA_CHAIN_CATALOG"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Commands: []*cli.Command{
			parseCommand(),
			validateCommand(),
			chainsCommand(),
			chatCommand(),
		},
	}
}

func loadCatalogue(c *cli.Context) (web3.Catalogue, error) {
	return web3.LoadCatalogue(c.String("catalog"))
}
