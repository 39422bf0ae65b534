package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/tickbase/fieldvault/cmd/app/commands"
	"github.com/tickbase/fieldvault/internal/app"
	"github.com/tickbase/fieldvault/internal/config"
	cryptoService "github.com/tickbase/fieldvault/internal/crypto/service"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "keygen",
			Usage: "Generate a base64 32-byte key for a keyring slot",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Value: "",
					Usage: "KMS key URI used to wrap the key (defaults to KMS_KEY_URI)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				kmsKeyURI := cmd.String("kms-key-uri")
				if kmsKeyURI == "" {
					kmsKeyURI = cfg.KMSKeyURI
				}

				return commands.RunKeygen(
					ctx,
					cryptoService.NewKMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					kmsKeyURI,
				)
			},
		},
		{
			Name:  "verify-keys",
			Usage: "Load and validate the configured keyring without printing key material",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunVerifyKeys(
					ctx,
					cryptoService.NewKMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cfg.KMSKeyURI,
				)
			},
		},
	}
}
