package cmd

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/digisign/certsign/bundle"
	"github.com/digisign/certsign/verify"
)

// BundleCommand creates the bundle commands
func BundleCommand() *cli.Command {
	return &cli.Command{
		Name:  "bundle",
		Usage: "Create and inspect signed certificate bundles",
		Commands: []*cli.Command{
			bundleCreateCommand(),
			bundleInspectCommand(),
		},
	}
}

func bundleCreateCommand() *cli.Command {
	flags := []cli.Flag{
		algorithmFlag(),
		&cli.StringFlag{
			Name:  "out",
			Usage: "Write the bundle to this file instead of printing base64",
		},
		&cli.StringFlag{
			Name:  "id",
			Usage: "Bundle UUID (random when omitted)",
		},
	}
	flags = append(flags, keyFlags()...)
	flags = append(flags, metadataFlags()...)

	return &cli.Command{
		Name:   "create",
		Usage:  "Sign certificate metadata into a bundle",
		Flags:  flags,
		Action: runBundleCreateCommand,
	}
}

func runBundleCreateCommand(ctx context.Context, cmd *cli.Command) error {
	id := uuid.New()
	if s := cmd.String("id"); s != "" {
		parsed, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid bundle id: %w", err)
		}
		id = parsed
	}

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

	cert, err := sess.svc.SignCertificate(m, kp, cmd.String("algorithm"))
	if err != nil {
		return fmt.Errorf("failed to sign certificate: %w", err)
	}
	b := bundle.FromCertificate(cert, id, sess.svc.Config().Clock.Now())

	var data []byte
	if path := cmd.String("out"); path != "" {
		data, err = bundle.WriteFile(path, b)
		if err != nil {
			return err
		}
		fmt.Fprintf(errOutput(cmd), "✓ Bundle %s written to %s\n", id, path)
	} else {
		data, err = bundle.Encode(b)
		if err != nil {
			return err
		}
		fmt.Fprintln(output(cmd), base64.StdEncoding.EncodeToString(data))
	}

	fmt.Fprintf(errOutput(cmd), "Fingerprint: %s\n", bundle.ComputeHash(data))
	return nil
}

func bundleInspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Decode a bundle and verify its signature",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "Path to bundle file",
			},
			&cli.StringFlag{
				Name:  "base64",
				Usage: "Base64-encoded bundle",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output in JSON format",
			},
		},
		Action: runBundleInspectCommand,
	}
}

func runBundleInspectCommand(ctx context.Context, cmd *cli.Command) error {
	filePath := cmd.String("file")
	b64 := cmd.String("base64")
	asJSON := cmd.Bool("json")

	if filePath == "" && b64 == "" {
		return errors.New("either --file or --base64 must be provided")
	}
	if filePath != "" && b64 != "" {
		return errors.New("only one of --file or --base64 should be provided")
	}

	var b *bundle.Bundle
	var data []byte
	var err error

	if filePath != "" {
		b, data, err = bundle.DecodeFromFile(filePath)
	} else {
		b, data, err = bundle.DecodeFromBase64(b64)
	}
	if err != nil {
		return fmt.Errorf("failed to decode bundle: %w", err)
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close(cmd)

	result, err := verify.NewService(sess.svc, sess.logger).VerifyBundle(ctx, b)
	if err != nil {
		return err
	}

	fingerprint := bundle.ComputeHash(data)
	formatter := verify.NewFormatter()
	if asJSON {
		out := formatter.FormatBundleJSON(b, fingerprint)
		out["valid"] = result.Valid
		if err := writeJSON(cmd, out); err != nil {
			return err
		}
	} else {
		fmt.Fprint(output(cmd), formatter.FormatBundle(b, fingerprint))
		if result.Valid {
			fmt.Fprintln(output(cmd), "\n✓ Signature is valid")
		} else {
			fmt.Fprintln(output(cmd), "\n✗ Signature is not valid")
		}
	}

	if !result.Valid {
		return ErrInvalidSignature
	}
	return nil
}
