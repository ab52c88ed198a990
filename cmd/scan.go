package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/digisign/certsign/verify"
)

// ScanCommand creates the scan command
func ScanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Verify a scanned QR value (URL or JSON)",
		ArgsUsage: "[value]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "value",
				Usage: "Scanned QR value; read from stdin when neither this nor an argument is given",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output in JSON format",
			},
		},
		Action: runScanCommand,
	}
}

func runScanCommand(ctx context.Context, cmd *cli.Command) error {
	value := cmd.String("value")
	if value == "" {
		value = cmd.Args().First()
	}
	if value == "" {
		data, err := io.ReadAll(input(cmd))
		if err != nil {
			return fmt.Errorf("failed to read QR value: %w", err)
		}
		value = strings.TrimSpace(string(data))
	}
	if value == "" {
		return errors.New("a QR value must be provided")
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close(cmd)

	service := verify.NewService(sess.svc, sess.logger)
	result, err := service.VerifyQR(ctx, value)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	formatter := verify.NewFormatter()
	if cmd.Bool("json") {
		if err := writeJSON(cmd, formatter.FormatVerificationResult(result)); err != nil {
			return err
		}
	} else {
		fmt.Fprint(output(cmd), formatter.FormatResult(result))
	}

	if !result.Valid {
		return ErrInvalidSignature
	}
	return nil
}

func input(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}
