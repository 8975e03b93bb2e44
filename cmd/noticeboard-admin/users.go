package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/noticeboard/internal/adapters/credentials"
	redisadapter "github.com/target/noticeboard/internal/adapters/redis"
	"github.com/target/noticeboard/internal/bootstrap"
	"github.com/target/noticeboard/internal/data"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
	"github.com/target/noticeboard/internal/ports"
	"github.com/target/noticeboard/internal/service"
)

type userOptions struct {
	Username      string
	Password      string
	PasswordStdin bool
	Roles         []domainauth.Role
	Disabled      bool
}

func runAddUser(cmdCtx *commandContext, args []string) error {
	opts, err := parseUserFlags("add-user", args, true)
	if err != nil {
		return err
	}
	hash, err := hashFromOptions(cmdCtx, opts)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		u, createErr := data.NewUserRepo(db, nil).Create(ctx, data.CreateUserRequest{
			Username:     opts.Username,
			PasswordHash: hash,
			Roles:        opts.Roles,
			Disabled:     opts.Disabled,
		})
		if createErr != nil {
			return createErr
		}
		return writef(cmdCtx.Stdout, "created user %s (roles: %s)\n", u.Username, strings.Join(u.Roles, ","))
	})
}

func runSetPassword(cmdCtx *commandContext, args []string) error {
	opts, err := parseUserFlags("set-password", args, false)
	if err != nil {
		return err
	}
	hash, err := hashFromOptions(cmdCtx, opts)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		if setErr := data.NewUserRepo(db, nil).SetPassword(ctx, opts.Username, hash); setErr != nil {
			return setErr
		}
		return writef(cmdCtx.Stdout, "password updated for %s\n", opts.Username)
	})
}

func runEnableUser(cmdCtx *commandContext, args []string) error {
	username, err := parseUsernameFlag("enable-user", args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		if setErr := data.NewUserRepo(db, nil).SetEnabled(ctx, username, true); setErr != nil {
			return setErr
		}
		return writef(cmdCtx.Stdout, "enabled %s\n", username)
	})
}

func runDisableUser(cmdCtx *commandContext, args []string) error {
	username, err := parseUsernameFlag("disable-user", args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		if setErr := data.NewUserRepo(db, nil).SetEnabled(ctx, username, false); setErr != nil {
			return setErr
		}
		return revokeAll(ctx, cmdCtx, db, username)
	})
}

func runRevokeUser(cmdCtx *commandContext, args []string) error {
	username, err := parseUsernameFlag("revoke-user", args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		return revokeAll(ctx, cmdCtx, db, username)
	})
}

// revokeAll deletes a user's remember-me series and live sessions.
func revokeAll(ctx context.Context, cmdCtx *commandContext, db *sql.DB, username string) error {
	tokens, err := revokeTokens(ctx, cmdCtx, data.NewTokenRepo(db), data.NewUserRepo(db, nil), username)
	if err != nil {
		return err
	}

	client, err := bootstrap.ConnectRedis(ctx, bootstrap.DatabaseConfig{
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", cerr)
		}
	}()

	store := redisadapter.NewSessionStoreWithPrefix(client, bootstrap.SessionKeyPrefix)
	sessions, err := store.DeleteForUser(ctx, username)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return writef(cmdCtx.Stdout, "revoked %d remember-me tokens and %d sessions for %s\n", tokens, sessions, username)
}

// revokeTokens deletes every remember-me series for username. Revocation never
// decodes a cookie, so an unset signing key is replaced without a warning.
func revokeTokens(
	ctx context.Context,
	cmdCtx *commandContext,
	tokens ports.TokenStore,
	users ports.UserDirectory,
	username string,
) (int64, error) {
	rm, err := service.NewRememberMeService(service.RememberMeServiceOptions{
		Tokens: tokens,
		Users:  users,
		Key:    bootstrap.RememberMeKey(cmdCtx.Config.Auth.RememberMeKey, nil),
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return 0, err
	}
	return rm.RevokeAll(ctx, username)
}

func runListUsers(cmdCtx *commandContext, _ []string) error {
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		users, err := data.NewUserRepo(db, nil).List(ctx)
		if err != nil {
			return err
		}
		return printUsers(cmdCtx.Stdout, users)
	})
}

func printUsers(w io.Writer, users []data.User) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "USERNAME\tROLES\tENABLED\tUPDATED\n"); err != nil {
		return err
	}
	for _, u := range users {
		if err := writef(tw, "%s\t%s\t%t\t%s\n",
			u.Username, strings.Join(u.Roles, ","), u.Enabled, u.UpdatedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

type purgeOptions struct {
	Validity  time.Duration
	BatchSize int
}

func runPurgeTokens(cmdCtx *commandContext, args []string) error {
	opts, err := parsePurgeFlags(args, cmdCtx.Config.Auth.RememberMeValidity, cmdCtx.Config.TokenReaper.BatchSize)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, defaultMigrationTimeout, func(ctx context.Context, db *sql.DB) error {
		reaperCfg := cmdCtx.Config.TokenReaper
		reaperCfg.BatchSize = opts.BatchSize
		reaper, rerr := service.NewTokenReaper(service.TokenReaperOptions{
			Tokens:   data.NewTokenRepo(db),
			Config:   reaperCfg,
			Validity: opts.Validity,
			Logger:   cmdCtx.Logger,
		})
		if rerr != nil {
			return rerr
		}
		deleted, perr := reaper.PurgeExpired(ctx)
		if perr != nil {
			return perr
		}
		return writef(cmdCtx.Stdout, "deleted %d expired remember-me tokens\n", deleted)
	})
}

func parsePurgeFlags(args []string, validity time.Duration, batch int) (purgeOptions, error) {
	fs := flag.NewFlagSet("purge-tokens", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := purgeOptions{}
	fs.DurationVar(&opts.Validity, "validity", validity, "Delete tokens unused for longer than this")
	fs.IntVar(&opts.BatchSize, "batch-size", batch, "Rows deleted per statement")
	if err := fs.Parse(args); err != nil {
		return purgeOptions{}, err
	}
	if opts.Validity <= 0 {
		return purgeOptions{}, errors.New("--validity must be greater than zero")
	}
	if opts.BatchSize < 1 {
		return purgeOptions{}, errors.New("--batch-size must be at least 1")
	}
	return opts, nil
}

func parseUsernameFlag(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	username := fs.String("username", "", "Username (required)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if strings.TrimSpace(*username) == "" {
		return "", errors.New("--username is required")
	}
	return strings.TrimSpace(*username), nil
}

func parseUserFlags(name string, args []string, withRoles bool) (userOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts userOptions
	var roles string
	fs.StringVar(&opts.Username, "username", "", "Username (required)")
	fs.StringVar(&opts.Password, "password", "", "Password; prefer --password-stdin")
	fs.BoolVar(&opts.PasswordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	if withRoles {
		fs.StringVar(&roles, "roles", string(domainauth.RoleMember), "Comma-separated roles, e.g. ADMIN,MEMBER")
		fs.BoolVar(&opts.Disabled, "disabled", false, "Create the account disabled")
	}
	if err := fs.Parse(args); err != nil {
		return userOptions{}, err
	}

	opts.Username = strings.TrimSpace(opts.Username)
	if opts.Username == "" {
		return userOptions{}, errors.New("--username is required")
	}
	if opts.Password != "" && opts.PasswordStdin {
		return userOptions{}, errors.New("--password and --password-stdin are mutually exclusive")
	}
	if opts.Password == "" && !opts.PasswordStdin {
		return userOptions{}, errors.New("one of --password or --password-stdin is required")
	}
	if withRoles {
		opts.Roles = domainauth.NormalizeRoles(strings.Split(roles, ","))
		if len(opts.Roles) == 0 {
			return userOptions{}, errors.New("--roles must name at least one role")
		}
	}
	return opts, nil
}

func hashFromOptions(cmdCtx *commandContext, opts userOptions) (string, error) {
	password := opts.Password
	if opts.PasswordStdin {
		var err error
		if password, err = readPassword(cmdCtx.Stdin); err != nil {
			return "", err
		}
	}
	return credentials.BcryptVerifier{}.Hash(password)
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password on stdin")
	}
	return password, nil
}
