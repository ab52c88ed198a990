package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// SignCommand creates the sign command
func SignCommand() *cli.Command {
	flags := []cli.Flag{
		algorithmFlag(),
		&cli.StringFlag{
			Name:  "data",
			Usage: "Sign this payload as-is instead of building one from metadata",
		},
	}
	flags = append(flags, keyFlags()...)
	flags = append(flags, metadataFlags()...)

	return &cli.Command{
		Name:   "sign",
		Usage:  "Sign certificate metadata or a raw payload",
		Flags:  flags,
		Action: runSignCommand,
	}
}

func runSignCommand(ctx context.Context, cmd *cli.Command) error {
	kp, err := loadKeyPair(cmd)
	if err != nil {
		return err
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close(cmd)

	algorithm := cmd.String("algorithm")

	// Raw payload
	if cmd.IsSet("data") {
		sig, err := sess.svc.SignData(cmd.String("data"), kp.PrivateKey, algorithm)
		if err != nil {
			return fmt.Errorf("failed to sign payload: %w", err)
		}
		return writeJSON(cmd, map[string]string{
			"signature": sig,
			"publicKey": kp.PublicKey,
		})
	}

	// Certificate metadata
	m, err := readMetadata(cmd)
	if err != nil {
		return err
	}
	cert, err := sess.svc.SignCertificate(m, kp, algorithm)
	if err != nil {
		return fmt.Errorf("failed to sign certificate: %w", err)
	}

	fmt.Fprintf(errOutput(cmd), "✓ Signed certificate for %s with %s\n", cert.Metadata.HolderName, cert.Algorithm)
	return writeJSON(cmd, cert)
}
