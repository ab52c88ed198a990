package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/digisign/certsign/cmd"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:     "certsign",
		Usage:    "Sign and verify event certificates",
		Flags:    cmd.GlobalFlags(),
		Commands: cmd.Commands(),
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
