package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// PayloadCommand creates the payload command
func PayloadCommand() *cli.Command {
	return &cli.Command{
		Name:   "payload",
		Usage:  "Print the canonical signable payload for certificate metadata",
		Flags:  metadataFlags(),
		Action: runPayloadCommand,
	}
}

func runPayloadCommand(ctx context.Context, cmd *cli.Command) error {
	m, err := readMetadata(cmd)
	if err != nil {
		return err
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close(cmd)

	data, err := sess.svc.CreateSignableData(m)
	if err != nil {
		return fmt.Errorf("failed to create signable payload: %w", err)
	}

	fmt.Fprintln(output(cmd), data)
	return nil
}
