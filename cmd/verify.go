package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
)

// ErrInvalidSignature is returned by commands whose verification fails, so
// the process exits non-zero after printing the result.
var ErrInvalidSignature = errors.New("signature is not valid")

// VerifyCommand creates the verify command
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify a signature over a payload",
		Flags: []cli.Flag{
			algorithmFlag(),
			&cli.StringFlag{
				Name:     "data",
				Usage:    "Signed payload",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "signature",
				Usage:    `Signature as {"r":"..","s":".."}`,
				Required: true,
			},
			&cli.StringFlag{
				Name:     "public-key",
				Usage:    `Public key as {"x":"..","y":".."}`,
				Required: true,
				Sources:  cli.EnvVars("CERTSIGN_PUBLIC_KEY"),
			},
		},
		Action: runVerifyCommand,
	}
}

func runVerifyCommand(ctx context.Context, cmd *cli.Command) error {
	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close(cmd)

	algorithm := cmd.String("algorithm")
	valid := sess.svc.VerifySignature(
		cmd.String("data"),
		cmd.String("signature"),
		cmd.String("public-key"),
		algorithm,
	)

	if err := writeJSON(cmd, map[string]interface{}{
		"valid":     valid,
		"algorithm": algorithm,
	}); err != nil {
		return err
	}

	if !valid {
		return ErrInvalidSignature
	}
	fmt.Fprintf(errOutput(cmd), "✓ Signature is valid\n")
	return nil
}
