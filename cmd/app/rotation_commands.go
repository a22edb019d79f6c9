package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/sealbox/sealbox/cmd/app/commands"
	"github.com/sealbox/sealbox/internal/app"
	"github.com/sealbox/sealbox/internal/config"
)

func getRotationCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "rotate",
			Usage: "Rotate every rotatable secret slot and re-encrypt stored records",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				coordinator, err := container.Coordinator()
				if err != nil {
					return err
				}

				return commands.RunRotate(
					ctx,
					coordinator,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotation-status",
			Usage: "Show the rotation state of every secret slot",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				coordinator, err := container.Coordinator()
				if err != nil {
					return err
				}

				return commands.RunStatus(
					ctx,
					coordinator,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "generate-key",
			Usage: "Generate a random key suitable for a secret slot",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "algorithm",
					Aliases: []string{"alg"},
					Value:   "aes-gcm",
					Usage:   "Key algorithm (aes-gcm, chacha20-poly1305 or hmac-sha256)",
				},
				&cli.IntFlag{
					Name:    "size",
					Aliases: []string{"s"},
					Value:   32,
					Usage:   "Key size in bytes",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunGenerateKey(
					commands.DefaultIO().Writer,
					cmd.String("algorithm"),
					int(cmd.Int("size")),
				)
			},
		},
	}
}
