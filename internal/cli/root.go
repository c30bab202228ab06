package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/internal/app"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/internal/config"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/internal/provision"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/internal/util"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/backup"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/storage"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/store"
)

// Env holds the process surface the commands talk to.
type Env struct {
	Out io.Writer
	Err io.Writer
	In  io.Reader
	// Prompt overrides confirmation prompts. Nil selects an interactive
	// prompt on a terminal and an automatic "no" otherwise.
	Prompt Prompter
	// Now overrides the clock used for loans and reports.
	Now func() time.Time
}

// Execute runs the command line against the real process and returns the exit code.
func Execute() int {
	return Run(context.Background(), os.Args[1:], Env{Out: os.Stdout, Err: os.Stderr, In: os.Stdin})
}

// Run executes args and returns the exit code.
func Run(ctx context.Context, args []string, env Env) int {
	c := newCLI(env)
	defer c.close()

	root := c.rootCommand()
	root.SetArgs(args)
	root.SetOut(env.Out)
	root.SetErr(env.Err)
	root.SetIn(env.In)
	if err := root.ExecuteContext(ctx); err != nil {
		c.reportError(err)
		return 1
	}
	return 0
}

// cli carries flags and lazily opened resources shared by the commands.
type cli struct {
	env        Env
	out        *printer
	errOut     *printer
	configPath string
	yes        bool

	cfg     *config.FileConfig
	logger  *slog.Logger
	store   *store.GormStore
	app     *app.App
	backups *backup.Manager
}

func newCLI(env Env) *cli {
	if env.Out == nil {
		env.Out = os.Stdout
	}
	if env.Err == nil {
		env.Err = os.Stderr
	}
	if env.In == nil {
		env.In = os.Stdin
	}
	if env.Prompt == nil {
		env.Prompt = defaultPrompter(env.In)
	}
	if env.Now == nil {
		env.Now = func() time.Time { return time.Now().UTC() }
	}
	return &cli{env: env, out: newPrinter(env.Out), errOut: newPrinter(env.Err)}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Manage a lending library: books, users, loans, and backups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.ConfigPath, "path to the YAML configuration file")
	root.PersistentFlags().BoolVarP(&c.yes, "yes", "y", false, "answer yes to every confirmation")

	root.AddGroup(
		&cobra.Group{ID: "catalog", Title: "Library:"},
		&cobra.Group{ID: "ops", Title: "Operations:"},
	)
	for _, cmd := range []*cobra.Command{c.bookCommand(), c.userCommand(), c.loanCommand(), c.reportCommand()} {
		cmd.GroupID = "catalog"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{c.backupCommand(), c.dbCommand()} {
		cmd.GroupID = "ops"
		root.AddCommand(cmd)
	}
	return root
}

func (c *cli) loadConfig() (config.FileConfig, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	c.cfg = &cfg
	c.logger = util.InitLogger(cfg.LogLevel, c.env.Err)
	return cfg, nil
}

func (c *cli) openStore() (*store.GormStore, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.NewGormStore(store.Config{
		Path:        cfg.DatabasePath,
		DatabaseURL: cfg.DatabaseURL,
		LogLevel:    cfg.LogLevel,
		LogWriter:   c.env.Err,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.store = st
	return st, nil
}

func (c *cli) services() (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	cfg, _ := c.loadConfig()
	a, err := app.New(app.Config{
		Store:           st,
		DefaultLoanDays: cfg.Loans.DefaultDays,
		RenewDays:       cfg.Loans.RenewDays,
		Now:             c.env.Now,
		Logger:          c.logger,
	})
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

// backupManager builds the manager without opening a file database, so a
// restore works even when the live file is missing or damaged.
func (c *cli) backupManager(ctx context.Context) (*backup.Manager, error) {
	if c.backups != nil {
		return c.backups, nil
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	var src backup.Source = backup.FileSource{Path: cfg.DatabasePath}
	if cfg.DatabaseURL != "" {
		st, err := c.openStore()
		if err != nil {
			return nil, err
		}
		src = backup.DatabaseSource{DB: st.DB()}
	}

	bcfg := backup.Config{
		Dir:    cfg.Backup.Dir,
		Prefix: cfg.Backup.Prefix,
		Logger: c.logger,
	}
	if m := cfg.Backup.Mirror; m.Endpoint != "" {
		mirror, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			UseSSL:    m.UseSSL,
			Prefix:    m.Prefix,
		})
		if err != nil {
			c.logger.Warn("backup mirror unavailable", "endpoint", m.Endpoint, "err", err)
		} else {
			bcfg.Mirror = mirror
		}
	}
	mgr, err := backup.NewManager(src, bcfg)
	if err != nil {
		return nil, err
	}
	c.backups = mgr
	return mgr, nil
}

func (c *cli) provisioner(ctx context.Context) (*provision.Provisioner, error) {
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	cfg, _ := c.loadConfig()
	mgr, err := c.backupManager(ctx)
	if err != nil {
		return nil, err
	}
	return provision.New(provision.Config{
		Store:    st,
		Backups:  mgr,
		LoanDays: cfg.Loans.DefaultDays,
		Logger:   c.logger,
	})
}

// confirm asks before a destructive step. --yes answers for the operator.
func (c *cli) confirm(title, description string) (bool, error) {
	if c.yes {
		return true, nil
	}
	return c.env.Prompt.Confirm(title, description)
}

func (c *cli) close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil && c.logger != nil {
			c.logger.Warn("close database", "err", err)
		}
	}
}

func (c *cli) reportError(err error) {
	switch {
	case errors.Is(err, backup.ErrCancelled):
		c.errOut.Warn("Operation cancelled.")
	default:
		c.errOut.Error("Error: %v", err)
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a valid id", app.ErrInvalidInput, arg)
	}
	return id, nil
}
