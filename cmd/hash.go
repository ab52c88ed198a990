package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/digisign/certsign/crypto"
	"github.com/digisign/certsign/curve"
	"github.com/digisign/certsign/digest"
)

// HashCommand creates the hash command
func HashCommand() *cli.Command {
	return &cli.Command{
		Name:  "hash",
		Usage: "Print SHA128 and BLAKE2b digests and the ECDSA message scalars of an input",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "text",
				Usage: "Input text",
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "Path to input file",
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "BLAKE2b digest size in bytes (1-64)",
				Value: 32,
			},
		},
		Action: runHashCommand,
	}
}

func runHashCommand(ctx context.Context, cmd *cli.Command) error {
	text := cmd.String("text")
	filePath := cmd.String("file")

	if filePath != "" && cmd.IsSet("text") {
		return errors.New("only one of --text or --file should be provided")
	}

	data := []byte(text)
	if filePath != "" {
		var err error
		data, err = os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
	}

	size := int(cmd.Int("size"))
	blake, err := digest.Blake2bHex(data, size)
	if err != nil {
		return err
	}

	n := curve.Certificate().N()
	scalars := make(map[string]string, len(crypto.Algorithms()))
	for _, alg := range crypto.Algorithms() {
		e, err := crypto.HashToScalar(alg, data, n)
		if err != nil {
			return err
		}
		scalars[alg.String()] = e.String()
	}

	return writeJSON(cmd, map[string]interface{}{
		"length":  len(data),
		"sha128":  digest.SHA128Hex(data),
		"blake2b": blake,
		"size":    size,
		"scalars": scalars,
	})
}
