// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create a config file if needed, initialize the session database and run migrations",
		Action: r.Setup,
	}
}

// authCommand handles sign in and account creation
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign out and create accounts",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and persist the session",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Account username",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password (read from stdin when omitted)",
						Sources: cli.EnvVars("MYFLIX_PASSWORD"),
					},
				},
				Action: r.Login,
			},
			{
				Name:  "register",
				Usage: "Create an account (does not sign in)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Account username (at least 5 characters)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password (read from stdin when omitted)",
						Sources: cli.EnvVars("MYFLIX_PASSWORD"),
					},
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Email address",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "birthday",
						Usage: "Birthday (YYYY-MM-DD)",
					},
					&cli.BoolFlag{
						Name:  "login",
						Usage: "Sign in after the account is created",
					},
				},
				Action: r.Register,
			},
			{
				Name:   "logout",
				Usage:  "End the current session",
				Action: r.Logout,
			},
			{
				Name:  "whoami",
				Usage: "Show the signed in user",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.WhoAmI,
			},
		},
	}
}

// moviesCommand handles catalog browsing
func moviesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "movies",
		Aliases: []string{"m"},
		Usage:   "Browse the movie catalog",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List movies, marking your favorites",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "filter",
						Aliases: []string{"f"},
						Usage:   "Only show movies whose title, director or genre contains this text",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.MoviesList,
			},
			{
				Name:  "show",
				Usage: "Show one movie",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the movie poster in the browser",
					},
					&cli.BoolFlag{
						Name:  "copy",
						Usage: "Copy the movie id to the clipboard",
					},
				},
				Action: r.MoviesShow,
			},
		},
	}
}

// favoritesCommand handles the signed in user's favorites
func favoritesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "favorites",
		Aliases: []string{"fav"},
		Usage:   "Manage your favorite movies",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List your favorite movies",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.FavoritesList,
			},
			{
				Name:  "toggle",
				Usage: "Add a movie to your favorites, or remove it if it is already there",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "comment",
						Usage: "Comment stored with the favorite when adding",
					},
				},
				Action: r.FavoritesToggle,
			},
			{
				Name:  "add",
				Usage: "Add a movie to your favorites",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "comment",
						Usage: "Comment stored with the favorite",
					},
				},
				Action: r.FavoritesAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a movie from your favorites",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.FavoritesRemove,
			},
			{
				Name:  "import",
				Usage: "Apply favorite changes from a CSV file (movie_id,comment,intent)",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent workers",
						Value: 3,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Requests per second",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the result as JSON",
					},
				},
				Action: r.FavoritesImport,
			},
			{
				Name:  "export",
				Usage: "Export your favorites to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format (csv, md, txt)",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: {username}_favorites.{ext})",
					},
				},
				Action: r.FavoritesExport,
			},
		},
	}
}

// profileCommand handles the signed in user's account
func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "View and edit your account",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show your profile",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ProfileShow,
			},
			{
				Name:  "update",
				Usage: "Update your profile; omitted fields keep their current value",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "username",
						Usage: "New username",
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "New email address",
					},
					&cli.StringFlag{
						Name:  "birthday",
						Usage: "New birthday (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "New password",
					},
				},
				Action: r.ProfileUpdate,
			},
			{
				Name:  "delete",
				Usage: "Delete your account and sign out",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the deletion",
					},
				},
				Action: r.ProfileDelete,
			},
		},
	}
}

// serveCommand runs the development catalog server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a local in-memory catalog server for development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host from config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: server.port from config)",
			},
			&cli.DurationFlag{
				Name:  "token-ttl",
				Usage: "Token lifetime; zero means tokens never expire",
			},
			&cli.BoolFlag{
				Name:  "extended-ids",
				Usage: "Encode favorite movie ids as {\"$oid\": ...}",
			},
		},
		Action: r.Serve,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal UI",
		Action: r.TUI,
	}
}
