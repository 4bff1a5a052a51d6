package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/credstore/cmd/app/commands"
	"github.com/allisson/credstore/internal/app"
	"github.com/allisson/credstore/internal/config"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-encryption-key",
			Usage: "Generate a keys file entry for a new encryption key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "provider",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Provider name the key belongs to",
				},
				&cli.StringFlag{
					Name:    "type",
					Aliases: []string{"t"},
					Value:   "internal",
					Usage:   "Provider type: internal or kms",
				},
				&cli.StringFlag{
					Name:    "algorithm",
					Aliases: []string{"alg"},
					Value:   "aes-gcm",
					Usage:   "Encryption algorithm for internal keys (aes-gcm or chacha20-poly1305)",
				},
				&cli.StringFlag{
					Name:    "name",
					Aliases: []string{"n"},
					Usage:   "Key name (e.g., key-2026-10)",
				},
				&cli.StringFlag{
					Name:  "key-uri",
					Usage: "KMS key URI (e.g., awskms:///alias/..., gcpkms://projects/.../cryptoKeys/...)",
				},
				&cli.BoolFlag{
					Name:  "active",
					Value: false,
					Usage: "Mark the key as the active key",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunCreateEncryptionKey(
					cmd.Root().Writer,
					cmd.String("provider"),
					cmd.String("type"),
					cmd.String("algorithm"),
					cmd.String("name"),
					cmd.String("key-uri"),
					cmd.Bool("active"),
				)
			},
		},
		{
			Name:  "verify-keys",
			Usage: "Check every configured encryption key against its canary",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keysConfig, err := encryptionDomain.LoadKeysConfig(cfg.EncryptionKeysFile)
				if err != nil {
					return err
				}

				keySetUseCase, err := container.KeySetUseCase()
				if err != nil {
					return err
				}

				return commands.RunVerifyKeys(
					ctx,
					keySetUseCase,
					keysConfig,
					container.Logger(),
					cmd.Root().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotate-keys",
			Usage: "Re-encrypt every stored value under the active encryption key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "key",
					Aliases: []string{"k"},
					Usage:   "Configured key to activate before re-encrypting",
				},
				&cli.IntFlag{
					Name:    "batch-size",
					Aliases: []string{"b"},
					Value:   100,
					Usage:   "Number of values to re-encrypt per batch",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				if err := container.LoadEncryptionKeys(ctx); err != nil {
					return err
				}

				keySetUseCase, err := container.KeySetUseCase()
				if err != nil {
					return err
				}

				rotatorUseCase, err := container.RotatorUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateKeys(
					ctx,
					keySetUseCase,
					rotatorUseCase,
					container.Logger(),
					cmd.Root().Writer,
					cmd.String("key"),
					int(cmd.Int("batch-size")),
					cmd.String("format"),
				)
			},
		},
	}
}
