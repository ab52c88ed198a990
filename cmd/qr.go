package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/digisign/certsign/qr"
	"github.com/digisign/certsign/signer"
)

// QRCommand creates the qr command
func QRCommand() *cli.Command {
	flags := []cli.Flag{
		algorithmFlag(),
		&cli.StringFlag{
			Name:    "origin",
			Usage:   "Origin of the verification page",
			Value:   signer.DefaultOrigin,
			Sources: cli.EnvVars("CERTSIGN_ORIGIN"),
		},
		&cli.BoolFlag{
			Name:  "compact",
			Usage: "Emit the compact CBOR form under ?c= instead of ?data=",
		},
	}
	flags = append(flags, keyFlags()...)
	flags = append(flags, metadataFlags()...)

	return &cli.Command{
		Name:   "qr",
		Usage:  "Sign certificate metadata and print the QR verification URL",
		Flags:  flags,
		Action: runQRCommand,
	}
}

func runQRCommand(ctx context.Context, cmd *cli.Command) error {
	kp, err := loadKeyPair(cmd)
	if err != nil {
		return err
	}
	m, err := readMetadata(cmd)
	if err != nil {
		return err
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close(cmd)

	var value string
	if cmd.Bool("compact") {
		cert, err := sess.svc.SignCertificate(m, kp, cmd.String("algorithm"))
		if err != nil {
			return fmt.Errorf("failed to sign certificate: %w", err)
		}
		value, err = qr.CompactURL(cmd.String("origin"), cert.Envelope())
		if err != nil {
			return err
		}
	} else {
		value, err = sess.svc.GenerateQRValue(m, kp, cmd.String("algorithm"), cmd.String("origin"))
		if err != nil {
			return fmt.Errorf("failed to generate QR value: %w", err)
		}
	}

	fmt.Fprintln(output(cmd), value)
	return nil
}
