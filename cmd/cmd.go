// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func limitFlag(value int) *cli.IntFlag {
	return &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"l"},
		Usage:   "Number of tracks to add",
		Value:   value,
	}
}

func nameFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "name",
		Aliases: []string{"n"},
		Usage:   "Playlist name (defaults to one derived from the mode)",
	}
}

func jsonFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output the result as JSON",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file and initialize the history database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
			},
		},
		Action: r.Setup,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web app",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the app in a browser once listening",
			},
		},
		Action: r.Serve,
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify login used by CLI commands",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Log in with Spotify in the browser and save the token",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show who is logged in",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Delete the saved token",
				Action: r.AuthLogout,
			},
		},
	}
}

func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Create a playlist",
		Commands: []*cli.Command{
			{
				Name:      "genre",
				Usage:     "Personalized playlist for a genre via the recommendations chain",
				ArgsUsage: "<genre>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "genre"},
				},
				Flags:  []cli.Flag{limitFlag(50), nameFlag(), jsonFlag()},
				Action: r.GenerateGenre,
			},
			{
				Name:      "random",
				Usage:     "Random catalog playlist for a genre",
				ArgsUsage: "<genre>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "genre"},
				},
				Flags:  []cli.Flag{limitFlag(50), nameFlag(), jsonFlag()},
				Action: r.GenerateRandom,
			},
			{
				Name:  "top",
				Usage: "Playlist of your top tracks",
				Flags: []cli.Flag{
					limitFlag(50), nameFlag(), jsonFlag(),
					&cli.StringFlag{
						Name:    "range",
						Aliases: []string{"r"},
						Usage:   "Time range: short_term, medium_term or long_term",
						Value:   "short_term",
					},
				},
				Action: r.GenerateTop,
			},
			{
				Name:   "trending",
				Usage:  "Copy of the top editorial trending playlist",
				Flags:  []cli.Flag{limitFlag(50), nameFlag(), jsonFlag()},
				Action: r.GenerateTrending,
			},
			{
				Name:      "batch",
				Usage:     "Run several generations from a JSON file",
				ArgsUsage: "<file>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent generations (max 4)",
						Value:   2,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Generations started per second",
						Value: 1,
					},
					&cli.StringFlag{
						Name:    "manifest",
						Aliases: []string{"m"},
						Usage:   "Write a JSON manifest of the results to this path",
					},
					jsonFlag(),
				},
				Action: r.GenerateBatch,
			},
		},
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List or export previously generated playlists",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of entries",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Only show one mode: genre, random, top or trending",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Only show playlists generated for this Spotify user id",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: txt, csv, markdown or json",
				Value:   "txt",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to a file instead of stdout",
			},
		},
		Action: r.History,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Interactive terminal UI",
		Flags: []cli.Flag{
			limitFlag(50),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs here while the UI runs",
				Value: "./tmp/spotmix-tui.log",
			},
		},
		Action: r.TUI,
	}
}
