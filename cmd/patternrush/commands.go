package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/robalobadob/patternrush/internal/leaderboard"
	"github.com/robalobadob/patternrush/internal/progress"
	"github.com/robalobadob/patternrush/internal/scoreclient"
	"github.com/robalobadob/patternrush/internal/store"
	"github.com/robalobadob/patternrush/internal/tui"
)

// tokenKey holds the scoreboard session token next to the saved progress.
const tokenKey = "scoreboardToken"

type options struct {
	server    string
	backend   string
	dataDir   string
	redisAddr string
	offline   bool
}

func defaultDataDir() string {
	if v := os.Getenv("PATTERNRUSH_DATA"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".patternrush"
	}
	return filepath.Join(home, ".patternrush")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "patternrush",
		Short:         "A memory and reaction game for the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), opts)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.server, "server", envOr("PATTERNRUSH_SERVER", "http://localhost:5175"), "scoreboard server base URL")
	f.StringVar(&opts.backend, "store", envOr("PATTERNRUSH_STORE", "file"), "progress backend: file, memory or redis")
	f.StringVar(&opts.dataDir, "data-dir", defaultDataDir(), "directory for the file backend and the log")
	f.StringVar(&opts.redisAddr, "redis-addr", envOr("REDIS_ADDR", "localhost:6379"), "redis address for the redis backend")
	f.BoolVar(&opts.offline, "offline", false, "play without the scoreboard server")

	root.AddCommand(
		&cobra.Command{
			Use:   "play",
			Short: "Start the game",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPlay(cmd.Context(), opts)
			},
		},
		newLeaderboardCmd(opts),
		newAccountCmd(opts, "signup", "Create a scoreboard account"),
		newAccountCmd(opts, "login", "Log in so scores are submitted under your account"),
		newLogoutCmd(opts),
		newResetCmd(opts),
	)
	return root
}

// openStore returns the progress backend selected by opts.
func openStore(ctx context.Context, opts *options) (store.KV, func() error, error) {
	noop := func() error { return nil }
	switch opts.backend {
	case "memory":
		return store.NewMemory(), noop, nil
	case "file", "":
		kv, err := store.NewFile(opts.dataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening file store: %w", err)
		}
		return kv, noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", opts.redisAddr, err)
		}
		return store.NewRedis(client, "patternrush:"), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want file, memory or redis)", opts.backend)
	}
}

// openLog returns a file logger so the full-screen UI stays clean.
func openLog(opts *options) (zerolog.Logger, func() error, error) {
	path := os.Getenv("PATTERNRUSH_LOG")
	if path == "" {
		path = filepath.Join(opts.dataDir, "patternrush.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("creating log dir: %w", err)
	}
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log: %w", err)
	}
	lvl, err := zerolog.ParseLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(fh).Level(lvl).With().Timestamp().Logger(), fh.Close, nil
}

func (o *options) client(ctx context.Context, kv store.KV) *scoreclient.Client {
	c := scoreclient.New(o.server)
	if tok, err := kv.Get(ctx, tokenKey); err == nil {
		c.Token = tok
	}
	return c
}

func runPlay(ctx context.Context, opts *options) error {
	kv, closeKV, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer closeKV()

	logger, closeLog, err := openLog(opts)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Info().Str("store", opts.backend).Str("server", opts.server).Msg("starting")

	t := tui.Options{
		Progress: progress.NewAdapter(kv),
		Logger:   &logger,
	}
	if !opts.offline {
		t.Scoreboard = opts.client(ctx, kv)
	}
	return tui.Run(ctx, t)
}

func newLeaderboardCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the global top 10",
		RunE: func(cmd *cobra.Command, args []string) error {
			top, err := scoreclient.New(opts.server).Leaderboard(cmd.Context())
			if err != nil {
				return err
			}
			return printTop(cmd.OutOrStdout(), top)
		},
	}
}

func printTop(w io.Writer, top []leaderboard.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tSCORE\tLEVEL")
	for i, e := range top {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", i+1, e.PlayerName, e.Score, e.Level)
	}
	return tw.Flush()
}

func newAccountCmd(opts *options, name, short string) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}
			ctx := cmd.Context()
			kv, closeKV, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer closeKV()

			c := scoreclient.New(opts.server)
			var sess scoreclient.Session
			if name == "signup" {
				sess, err = c.Signup(ctx, username, password)
			} else {
				sess, err = c.Login(ctx, username, password)
			}
			if err != nil {
				return err
			}
			if err := kv.Set(ctx, tokenKey, sess.Token); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s until %s\n", sess.Username, sess.ExpiresAt.Format(time.DateOnly))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account name")
	cmd.Flags().StringVar(&password, "password", os.Getenv("PATTERNRUSH_PASSWORD"), "account password")
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved scoreboard session",
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, closeKV, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeKV()
			if err := kv.Delete(cmd.Context(), tokenKey); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newResetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Erase saved progress (levels, codes, score, name)",
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, closeKV, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeKV()
			if err := progress.NewAdapter(kv).Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Progress erased")
			return nil
		},
	}
}
