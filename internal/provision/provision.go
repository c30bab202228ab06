package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/internal/app"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/backup"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/store"
)

var (
	// ErrCancelled is returned when a reset was not confirmed.
	ErrCancelled = backup.ErrCancelled
	// ErrBackupFailed aborts a reset whose safety backup could not be taken.
	ErrBackupFailed = errors.New("pre-reset backup failed")
	// ErrAlreadySeeded is returned when seeding a database that holds data.
	ErrAlreadySeeded = errors.New("database already has data")
)

// Database is the store surface provisioning needs.
type Database interface {
	store.Store
	Reset() error
	Path() string
	Size() int64
	External() bool
}

// Config wires a Provisioner.
type Config struct {
	Store Database
	// Backups takes the pre-reset safety copy. Optional.
	Backups *backup.Manager
	// LoanDays is the loan period used for sample loans.
	LoanDays int
	Now      func() time.Time
	// Rand drives sample loan selection. Defaults to a time-seeded source.
	Rand   *rand.Rand
	Logger *slog.Logger
}

// Provisioner bootstraps, resets, seeds, and describes the database.
type Provisioner struct {
	db       Database
	backups  *backup.Manager
	loanDays int
	now      func() time.Time
	rand     *rand.Rand
	logger   *slog.Logger
}

// New constructs a Provisioner.
func New(cfg Config) (*Provisioner, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		cfg.Rand = rand.New(rand.NewPCG(seed, seed>>32))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Provisioner{
		db:       cfg.Store,
		backups:  cfg.Backups,
		loanDays: cfg.LoanDays,
		now:      cfg.Now,
		rand:     cfg.Rand,
		logger:   cfg.Logger,
	}, nil
}

// SeedResult counts the sample rows written.
type SeedResult struct {
	Books         int
	Users         int
	ActiveLoans   int
	ReturnedLoans int
}

// InitResult reports what Init did.
type InitResult struct {
	Info DatabaseInfo
	// Seeded is nil when seeding was not requested or the database had data.
	Seeded *SeedResult
}

// Init reports on the freshly migrated schema and optionally loads sample
// data into an empty database.
func (p *Provisioner) Init(seed bool) (InitResult, error) {
	var res InitResult
	if seed {
		seeded, err := p.Seed(false)
		switch {
		case err == nil:
			res.Seeded = &seeded
		case errors.Is(err, ErrAlreadySeeded):
			p.logger.Info("seed skipped", "reason", err.Error())
		default:
			return res, err
		}
	}
	info, err := p.Info()
	if err != nil {
		return res, err
	}
	res.Info = info
	return res, nil
}

// ResetOptions gate a reset.
type ResetOptions struct {
	Confirmed bool
	// AllowWithoutBackup proceeds when the safety backup fails.
	AllowWithoutBackup bool
	// Seed loads sample data after the schema is recreated.
	Seed bool
}

// ResetResult reports what Reset did.
type ResetResult struct {
	Backup    *backup.Info
	BackupErr error
	Seeded    *SeedResult
}

// Reset backs up the database, drops every table, recreates the schema, and
// optionally reseeds.
func (p *Provisioner) Reset(ctx context.Context, opts ResetOptions) (ResetResult, error) {
	var res ResetResult
	if !opts.Confirmed {
		return res, ErrCancelled
	}
	if p.backups != nil {
		info, err := p.backups.CreateBackup(ctx, "")
		switch {
		case err == nil:
			res.Backup = &info
		case opts.AllowWithoutBackup:
			p.logger.Warn("resetting without backup", "err", err)
			res.BackupErr = err
		default:
			return res, fmt.Errorf("%w: %w", ErrBackupFailed, err)
		}
	}
	if err := p.db.Reset(); err != nil {
		return res, fmt.Errorf("reset schema: %w", err)
	}
	p.logger.Info("database reset")
	if opts.Seed {
		seeded, err := p.Seed(false)
		if err != nil {
			return res, err
		}
		res.Seeded = &seeded
	}
	return res, nil
}

// Seed loads 20 books, 10 users, returned loan history, and a few active
// loans in one transaction. Loans go through the loan service so
// availability stays consistent. A database holding data is refused unless
// replace is set, in which case it is cleared first.
func (p *Provisioner) Seed(replace bool) (SeedResult, error) {
	stats, err := p.db.Stats()
	if err != nil {
		return SeedResult{}, fmt.Errorf("read stats: %w", err)
	}
	if stats.Books.Total > 0 || stats.Users > 0 || stats.Loans.Total > 0 {
		if !replace {
			return SeedResult{}, fmt.Errorf("%w: %d books, %d users", ErrAlreadySeeded, stats.Books.Total, stats.Users)
		}
		if err := p.db.Reset(); err != nil {
			return SeedResult{}, fmt.Errorf("clear data: %w", err)
		}
	}

	var res SeedResult
	err = p.db.Transaction(func(tx store.Store) error {
		r, err := p.seed(tx)
		res = r
		return err
	})
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed: %w", err)
	}
	p.logger.Info("sample data loaded", "books", res.Books, "users", res.Users, "active_loans", res.ActiveLoans, "returned_loans", res.ReturnedLoans)
	return res, nil
}

func (p *Provisioner) seed(tx store.Store) (SeedResult, error) {
	var res SeedResult
	clock := p.now()
	services, err := app.New(app.Config{
		Store:           tx,
		DefaultLoanDays: p.loanDays,
		Now:             func() time.Time { return clock },
		Logger:          p.logger,
	})
	if err != nil {
		return res, err
	}

	bookIDs := make([]int64, 0, len(sampleBooks))
	for _, in := range sampleBooks {
		b, err := services.Books.AddBook(in)
		if err != nil {
			return res, fmt.Errorf("book %q: %w", in.Title, err)
		}
		bookIDs = append(bookIDs, b.ID)
	}
	res.Books = len(bookIDs)

	userIDs := make([]int64, 0, len(sampleUsers))
	for _, in := range sampleUsers {
		u, err := services.Users.AddUser(in)
		if err != nil {
			return res, fmt.Errorf("user %q: %w", in.Email, err)
		}
		userIDs = append(userIDs, u.ID)
	}
	res.Users = len(userIDs)

	now := p.now()
	day := 24 * time.Hour

	// History first: each returned loan is closed before the next one opens.
	for range returnedSampleLoans {
		clock = now.Add(-time.Duration(30+p.rand.IntN(61)) * day)
		loan, err := services.Loans.CreateLoan(p.pick(userIDs), p.pick(bookIDs), 0)
		if err != nil {
			return res, fmt.Errorf("history loan: %w", err)
		}
		clock = clock.Add(time.Duration(1+p.rand.IntN(7)) * day)
		if _, err := services.Loans.ReturnLoan(loan.ID); err != nil {
			return res, fmt.Errorf("history return: %w", err)
		}
		res.ReturnedLoans++
	}

	available := append([]int64(nil), bookIDs...)
	for range activeSampleLoans {
		i := p.rand.IntN(len(available))
		bookID := available[i]
		available = append(available[:i], available[i+1:]...)
		clock = now.Add(-time.Duration(1+p.rand.IntN(30)) * day)
		if _, err := services.Loans.CreateLoan(p.pick(userIDs), bookID, 0); err != nil {
			return res, fmt.Errorf("active loan: %w", err)
		}
		res.ActiveLoans++
	}
	return res, nil
}

func (p *Provisioner) pick(ids []int64) int64 {
	return ids[p.rand.IntN(len(ids))]
}

// TableCount is the row count of one table.
type TableCount struct {
	Table string
	Rows  int
}

// DatabaseInfo describes the live database.
type DatabaseInfo struct {
	Location string
	External bool
	Size     int64
	// ModTime is zero for external databases.
	ModTime time.Time
	Tables  []TableCount
	Stats   domain.Stats
}

// Info reports location, size, and per-table row counts.
func (p *Provisioner) Info() (DatabaseInfo, error) {
	stats, err := p.db.Stats()
	if err != nil {
		return DatabaseInfo{}, fmt.Errorf("read stats: %w", err)
	}
	info := DatabaseInfo{
		Location: p.db.Path(),
		External: p.db.External(),
		Size:     p.db.Size(),
		Stats:    stats,
		Tables: []TableCount{
			{Table: "users", Rows: stats.Users},
			{Table: "books", Rows: stats.Books.Total},
			{Table: "loans", Rows: stats.Loans.Total},
		},
	}
	if info.External {
		info.Location = "external database (DATABASE_URL)"
	} else if fi, err := os.Stat(info.Location); err == nil {
		info.ModTime = fi.ModTime()
	}
	return info, nil
}
