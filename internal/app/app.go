package app

import (
	"errors"
	"log/slog"
	"time"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/store"
)

const (
	defaultLoanDays  = 14
	defaultRenewDays = 7
)

// Config holds runtime configuration for the core application.
type Config struct {
	Store store.Store
	// DefaultLoanDays is used when CreateLoan is called with zero days.
	DefaultLoanDays int
	// RenewDays is used when RenewLoan is called with zero days.
	RenewDays int
	// Now overrides the clock. Defaults to time.Now in UTC.
	Now    func() time.Time
	Logger *slog.Logger
}

// App wires the catalog, patron, and loan services over one store.
type App struct {
	Books *CatalogService
	Users *PatronService
	Loans *LoanService
}

// New constructs the services sharing cfg.Store.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.DefaultLoanDays < 0 || cfg.RenewDays < 0 {
		return nil, errors.New("loan day counts must not be negative")
	}
	if cfg.DefaultLoanDays == 0 {
		cfg.DefaultLoanDays = defaultLoanDays
	}
	if cfg.RenewDays == 0 {
		cfg.RenewDays = defaultRenewDays
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	loans := &LoanService{
		store:       cfg.Store,
		defaultDays: cfg.DefaultLoanDays,
		renewDays:   cfg.RenewDays,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
	return &App{
		Books: &CatalogService{store: cfg.Store, logger: cfg.Logger},
		Users: &PatronService{store: cfg.Store, loans: loans, logger: cfg.Logger},
		Loans: loans,
	}, nil
}
