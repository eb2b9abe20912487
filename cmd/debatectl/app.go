package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"debate_arena/internal/logging"
	"debate_arena/internal/repository"
	"debate_arena/internal/service"
	"debate_arena/internal/storage"
	"debate_arena/internal/utils"
	"debate_arena/pkg/config"
)

// runtime 單一指令執行期間使用的資源
type runtime struct {
	cfg      *config.Config
	db       *storage.DB
	services *service.Services
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "debatectl",
		Usage: "manage the debate arena database, users and matches",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the configuration file",
				EnvVars: []string{"DEBATE_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			usersCommand(),
			judgesCommand(),
			matchesCommand(),
			roundsCommand(),
		},
	}
}

// withRuntime 載入設定並開啟資料庫後執行 fn，結束時關閉連線
func withRuntime(fn func(c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}
		db, err := storage.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()

		tokens, err := utils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
		services, err := service.NewServices(service.Deps{
			Repos:  repository.NewRepositories(db),
			Config: cfg.Debate,
			Tokens: tokens,
			Logger: logging.New(cfg.Log, os.Stderr),
		})
		if err != nil {
			return err
		}
		return fn(c, &runtime{cfg: cfg, db: db, services: services})
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update database tables",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			db, err := storage.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(c.Context); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "migrated %s database\n", cfg.DB.Driver)
			return nil
		},
	}
}

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "manage user accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "register a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "nickname"},
					&cli.BoolFlag{Name: "admin", Usage: "grant admin rights after creation"},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					user, err := rt.services.User.Register(c.Context, c.String("username"), c.String("password"), c.String("nickname"))
					if err != nil {
						return err
					}
					if c.Bool("admin") {
						if err := rt.services.User.SetAdmin(c.Context, user.ID, true); err != nil {
							return err
						}
						user.IsAdmin = true
					}
					return printJSON(c.App.Writer, user)
				}),
			},
			{
				Name:  "list",
				Usage: "list all users",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					users, err := rt.services.User.ListUsers(c.Context)
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, users)
				}),
			},
			{
				Name:  "set-admin",
				Usage: "grant or revoke admin rights",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "revoke"},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					admin := !c.Bool("revoke")
					if err := rt.services.User.SetAdmin(c.Context, c.Uint("id"), admin); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "user %d admin=%t\n", c.Uint("id"), admin)
					return nil
				}),
			},
		},
	}
}

func judgesCommand() *cli.Command {
	return &cli.Command{
		Name:  "judges",
		Usage: "manage match judges",
		Subcommands: []*cli.Command{
			{
				Name:  "assign",
				Usage: "assign a judge to an ongoing match",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "match", Required: true},
					&cli.UintFlag{Name: "user", Required: true},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					assignment, err := rt.services.Match.AssignJudge(c.Context, c.Uint("match"), c.Uint("user"))
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, assignment)
				}),
			},
		},
	}
}

func matchesCommand() *cli.Command {
	return &cli.Command{
		Name:  "matches",
		Usage: "start and finish matches",
		Subcommands: []*cli.Command{
			{
				Name:  "start",
				Usage: "start a match between two users",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "topic", Required: true},
					&cli.UintFlag{Name: "a", Usage: "side A user id", Required: true},
					&cli.UintFlag{Name: "b", Usage: "side B user id", Required: true},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					match, err := rt.services.Match.StartMatch(c.Context, c.Uint("topic"), c.Uint("a"), c.Uint("b"))
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, match)
				}),
			},
			{
				Name:  "force-finish",
				Usage: "finish a match; without --winner it ends with no winner and ratings unchanged",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "match", Required: true},
					&cli.UintFlag{Name: "winner"},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					var winner *uint
					if c.IsSet("winner") {
						w := c.Uint("winner")
						winner = &w
					}
					match, err := rt.services.Match.ForceFinish(c.Context, c.Uint("match"), winner)
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, match)
				}),
			},
		},
	}
}

func roundsCommand() *cli.Command {
	return &cli.Command{
		Name:  "rounds",
		Usage: "round maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "sweep",
				Usage: "close every round whose voting deadline has passed",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					closed, err := rt.services.Sweeper.SweepOnce(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "closed %d expired rounds\n", closed)
					return nil
				}),
			},
		},
	}
}
