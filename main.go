package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ebfe/scard"
	"github.com/urfave/cli/v3"

	"github.com/gregLibert/ccid-utils/pkg/emv"
)

func main() {
	app := &cli.Command{
		Name:  "ccid-utils",
		Usage: "EMV chip card exploration and static data authentication",
		Commands: []*cli.Command{
			readersCommand(),
			authenticateCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func readersCommand() *cli.Command {
	return &cli.Command{
		Name:  "readers",
		Usage: "List connected smart card readers",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sctx, err := scard.EstablishContext()
			if err != nil {
				return fmt.Errorf("establish PC/SC context: %w", err)
			}
			defer releaseContext(sctx)

			readers, err := sctx.ListReaders()
			if err != nil {
				return fmt.Errorf("list readers: %w", err)
			}
			if len(readers) == 0 {
				fmt.Println("No smart card reader found.")
				return nil
			}
			for i, r := range readers {
				fmt.Printf("%d: %s\n", i, r)
			}
			return nil
		},
	}
}

func authenticateCommand() *cli.Command {
	return &cli.Command{
		Name:  "authenticate",
		Usage: "Run static data authentication against a payment application",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "aid",
				Usage:    "Application identifier to select (hex)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "ca-file",
				Usage:    "JSON file holding the certificate authority public keys",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "reader",
				Usage: "Reader index to connect to",
			},
		},
		Action: runAuthenticate,
	}
}

func runAuthenticate(ctx context.Context, cmd *cli.Command) error {
	aid, err := hex.DecodeString(strings.ReplaceAll(cmd.String("aid"), " ", ""))
	if err != nil {
		return fmt.Errorf("invalid AID: %w", err)
	}

	caKeys, err := emv.LoadCAKeySet(cmd.String("ca-file"))
	if err != nil {
		return err
	}

	sctx, card, err := connectToCard(int(cmd.Int("reader")))
	if err != nil {
		return err
	}
	defer releaseContext(sctx)
	defer func() {
		if err := card.Disconnect(scard.LeaveCard); err != nil {
			slog.Warn("failed to disconnect card", "err", err)
		}
	}()

	session := emv.NewSession(card)

	if err := session.SelectApplication(aid); err != nil {
		return err
	}
	slog.Info("application selected", "aid", fmt.Sprintf("%X", aid))

	if err := session.GetProcessingOptions(); err != nil {
		return err
	}
	aip := session.AIP()
	slog.Info("processing options received", "aip", fmt.Sprintf("%X", aip[:]))

	if err := session.ReadApplicationData(); err != nil {
		return err
	}
	slog.Info("application data read",
		"sda_records", len(session.Store().SDARecords()))

	if err := session.AuthenticateStaticData(caKeys.Modulus, caKeys.Exponent); err != nil {
		slog.Error("static data authentication failed", "err", err)
		return err
	}

	issuer := session.IssuerPublicKey()
	slog.Info("static data authentication succeeded",
		"issuer_modulus_bytes", issuer.Size)
	fmt.Printf("SDA verified: %v\n", session.SDAVerified())
	fmt.Printf("Issuer public key modulus: %X\n", issuer.N.Bytes())
	return nil
}

// connectToCard establishes the PC/SC context and connects to the
// selected reader.
func connectToCard(reader int) (*scard.Context, *scard.Card, error) {
	sctx, err := scard.EstablishContext()
	if err != nil {
		return nil, nil, fmt.Errorf("establish PC/SC context: %w", err)
	}

	readers, err := sctx.ListReaders()
	if err != nil || len(readers) == 0 {
		releaseContext(sctx)
		return nil, nil, fmt.Errorf("no smart card reader found")
	}
	if reader < 0 || reader >= len(readers) {
		releaseContext(sctx)
		return nil, nil, fmt.Errorf("reader index %d out of range (%d readers)", reader, len(readers))
	}

	slog.Info("using reader", "name", readers[reader])

	// Force T=0 or T=1 to avoid "Parameter Incorrect" errors.
	card, err := sctx.Connect(readers[reader], scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		releaseContext(sctx)
		return nil, nil, fmt.Errorf("connect to card: %w", err)
	}

	return sctx, card, nil
}

func releaseContext(sctx *scard.Context) {
	if err := sctx.Release(); err != nil {
		slog.Warn("failed to release PC/SC context", "err", err)
	}
}
