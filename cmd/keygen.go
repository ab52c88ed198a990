package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// KeygenCommand creates the keygen command
func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a signing key pair",
		Flags: []cli.Flag{
			algorithmFlag(),
			&cli.StringFlag{
				Name:  "name",
				Usage: "Save the key pair under this name in the key directory",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "List stored key names instead of generating a key",
			},
		},
		Action: runKeygenCommand,
	}
}

func runKeygenCommand(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("list") {
		store, err := keyStore(cmd)
		if err != nil {
			return err
		}
		names, err := store.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(output(cmd), name)
		}
		return nil
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close(cmd)

	kp, err := sess.svc.GenerateKeyPair(cmd.String("algorithm"))
	if err != nil {
		return fmt.Errorf("failed to generate key pair: %w", err)
	}

	if name := cmd.String("name"); name != "" {
		store, err := keyStore(cmd)
		if err != nil {
			return err
		}
		if err := store.Save(name, kp); err != nil {
			return fmt.Errorf("failed to save key pair: %w", err)
		}
		fmt.Fprintf(errOutput(cmd), "✓ Key pair saved as %q in %s\n", name, store.Dir)
	}

	return writeJSON(cmd, kp)
}
