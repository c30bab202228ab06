package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/store"
)

// LoanService owns the loan lifecycle and keeps book availability in step
// with it: a book is unavailable exactly while one active loan references it.
type LoanService struct {
	store       store.Store
	defaultDays int
	renewDays   int
	now         func() time.Time
	logger      *slog.Logger
}

// bind returns a copy of the service operating on st.
func (s *LoanService) bind(st store.Store) *LoanService {
	c := *s
	c.store = st
	return &c
}

// CreateLoan lends bookID to userID for days (zero means the default period).
// The loan insert and the availability flip commit together.
func (s *LoanService) CreateLoan(userID, bookID int64, days int) (domain.Loan, error) {
	if days < 0 {
		return domain.Loan{}, fmt.Errorf("%w: loan days must be positive", ErrInvalidInput)
	}
	if days == 0 {
		days = s.defaultDays
	}
	now := s.now()

	var created domain.Loan
	err := s.store.Transaction(func(tx store.Store) error {
		user, ok, err := tx.GetUser(userID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if !ok {
			return fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		book, ok, err := tx.GetBook(bookID)
		if err != nil {
			return fmt.Errorf("get book: %w", err)
		}
		if !ok {
			return fmt.Errorf("book %d: %w", bookID, ErrNotFound)
		}
		flipped, err := tx.MarkBookUnavailable(bookID)
		if err != nil {
			return fmt.Errorf("mark book unavailable: %w", err)
		}
		if !flipped {
			return fmt.Errorf("book %d: %w", bookID, ErrUnavailable)
		}
		loan, err := tx.CreateLoan(domain.Loan{
			UserID:   userID,
			BookID:   bookID,
			LoanDate: now,
			DueDate:  now.AddDate(0, 0, days),
		})
		if err != nil {
			return fmt.Errorf("create loan: %w", err)
		}
		loan.BookTitle = book.Title
		loan.UserName = user.Name
		created = loan
		return nil
	})
	if err != nil {
		return domain.Loan{}, err
	}
	s.logger.Info("loan created", "loan_id", created.ID, "book_id", bookID, "user_id", userID, "due", created.DueDate)
	return created, nil
}

// ReturnLoan closes an active loan and makes its book available again.
// A missing or already returned loan reports false without an error.
func (s *LoanService) ReturnLoan(loanID int64) (bool, error) {
	returned := false
	err := s.store.Transaction(func(tx store.Store) error {
		loan, ok, err := tx.GetLoan(loanID)
		if err != nil {
			return fmt.Errorf("get loan: %w", err)
		}
		if !ok || loan.IsReturned {
			return nil
		}
		closed, err := tx.MarkLoanReturned(loanID, s.now())
		if err != nil {
			return fmt.Errorf("mark loan returned: %w", err)
		}
		if !closed {
			return nil
		}
		found, err := tx.MarkBookAvailable(loan.BookID)
		if err != nil {
			return fmt.Errorf("mark book available: %w", err)
		}
		if !found {
			return fmt.Errorf("book %d of loan %d: %w", loan.BookID, loanID, ErrNotFound)
		}
		returned = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if returned {
		s.logger.Info("loan returned", "loan_id", loanID)
	}
	return returned, nil
}

// RenewLoan pushes the due date of an active loan by extraDays (zero means
// the default renewal). A missing or returned loan reports false.
func (s *LoanService) RenewLoan(loanID int64, extraDays int) (bool, error) {
	if extraDays < 0 {
		return false, fmt.Errorf("%w: renewal days must be positive", ErrInvalidInput)
	}
	if extraDays == 0 {
		extraDays = s.renewDays
	}
	renewed := false
	err := s.store.Transaction(func(tx store.Store) error {
		loan, ok, err := tx.GetLoan(loanID)
		if err != nil {
			return fmt.Errorf("get loan: %w", err)
		}
		if !ok || loan.IsReturned {
			return nil
		}
		renewed, err = tx.ExtendLoan(loanID, loan.DueDate.AddDate(0, 0, extraDays))
		if err != nil {
			return fmt.Errorf("extend loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if renewed {
		s.logger.Info("loan renewed", "loan_id", loanID, "days", extraDays)
	}
	return renewed, nil
}

// GetLoan retrieves a loan by ID.
func (s *LoanService) GetLoan(id int64) (domain.Loan, bool, error) {
	return s.store.GetLoan(id)
}

// GetActiveLoans returns every unreturned loan, newest first.
func (s *LoanService) GetActiveLoans() ([]domain.Loan, error) {
	return s.store.ListLoans(store.LoanFilter{Returned: boolPtr(false)})
}

// GetActiveLoansByUser returns the unreturned loans held by userID.
func (s *LoanService) GetActiveLoansByUser(userID int64) ([]domain.Loan, error) {
	return s.store.ListLoans(store.LoanFilter{UserID: userID, Returned: boolPtr(false)})
}

// GetReturnedLoans returns closed loans, newest first.
func (s *LoanService) GetReturnedLoans() ([]domain.Loan, error) {
	return s.store.ListLoans(store.LoanFilter{Returned: boolPtr(true)})
}

// GetUserHistory returns all loans of userID ordered by loan date descending.
func (s *LoanService) GetUserHistory(userID int64) ([]domain.Loan, error) {
	return s.store.ListLoans(store.LoanFilter{UserID: userID})
}

// GetOverdueLoans returns active loans whose due date is before now.
func (s *LoanService) GetOverdueLoans(now time.Time) ([]domain.Loan, error) {
	active, err := s.GetActiveLoans()
	if err != nil {
		return nil, err
	}
	res := make([]domain.Loan, 0, len(active))
	for _, l := range active {
		if l.Overdue(now) {
			res = append(res, l)
		}
	}
	return res, nil
}

// Now exposes the service clock.
func (s *LoanService) Now() time.Time {
	return s.now()
}

func boolPtr(v bool) *bool {
	return &v
}
