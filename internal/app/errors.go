package app

import "errors"

var (
	// ErrNotFound is returned when a referenced book, user, or loan does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when a loan is requested for a book already on loan.
	ErrUnavailable = errors.New("book unavailable")

	ErrDuplicateEmail = errors.New("email already registered")
	ErrInvalidEmail   = errors.New("invalid email")

	// ErrHasActiveLoans blocks deleting a user who still holds books.
	ErrHasActiveLoans = errors.New("user has active loans")
	// ErrBookOnLoan blocks deleting a book that is currently lent out.
	ErrBookOnLoan = errors.New("book is on loan")

	ErrInvalidInput = errors.New("invalid input")
)
