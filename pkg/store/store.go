package store

import (
	"errors"
	"time"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
)

// ErrDuplicate is returned when a write violates a unique index.
var ErrDuplicate = errors.New("duplicate key")

// BookFilter narrows ListBooks. Zero values match everything.
type BookFilter struct {
	Available *bool
	// Category is a case-insensitive substring match.
	Category string
	// Search is a case-insensitive substring match on title OR author.
	Search string
}

// LoanFilter narrows loan queries. Zero values match everything.
type LoanFilter struct {
	UserID   int64
	BookID   int64
	Returned *bool
}

// Store defines persistence operations for books, users, and loans.
type Store interface {
	// books
	CreateBook(domain.Book) (domain.Book, error)
	GetBook(id int64) (domain.Book, bool, error)
	ListBooks(filter BookFilter) ([]domain.Book, error)
	// MarkBookUnavailable flips availability true -> false and reports
	// whether this call performed the flip.
	MarkBookUnavailable(id int64) (bool, error)
	// MarkBookAvailable sets availability to true and reports whether the
	// book exists.
	MarkBookAvailable(id int64) (bool, error)
	DeleteBook(id int64) error
	CountBooksByStatus() (domain.BookCounts, error)
	CountBooksByCategory() ([]domain.CategoryCount, error)

	// users
	CreateUser(domain.User) (domain.User, error)
	GetUser(id int64) (domain.User, bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	ListUsers(search string) ([]domain.User, error)
	UpdateUser(domain.User) error
	DeleteUser(id int64) error

	// loans
	CreateLoan(domain.Loan) (domain.Loan, error)
	GetLoan(id int64) (domain.Loan, bool, error)
	// ListLoans returns loans ordered by loan date, newest first.
	ListLoans(filter LoanFilter) ([]domain.Loan, error)
	// MarkLoanReturned closes an active loan and reports whether this call
	// closed it.
	MarkLoanReturned(id int64, returnedAt time.Time) (bool, error)
	// ExtendLoan moves the due date of an active loan and reports whether
	// the loan was active.
	ExtendLoan(id int64, dueDate time.Time) (bool, error)
	DeleteLoans(filter LoanFilter) (int64, error)

	Stats() (domain.Stats, error)

	// Transaction runs fn against a Store bound to a single database
	// transaction. A non-nil error from fn rolls back every write.
	Transaction(fn func(Store) error) error
}
