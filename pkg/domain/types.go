package domain

import "time"

// Book is a catalog entry. IsAvailable is false while an active loan references it.
type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Year        int       `json:"year"`
	Category    string    `json:"category"`
	IsAvailable bool      `json:"isAvailable"`
	CreatedAt   time.Time `json:"createdAt"`
}

// User is a library patron.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// Loan links a user to a book for a period of time.
type Loan struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"userId"`
	BookID     int64      `json:"bookId"`
	LoanDate   time.Time  `json:"loanDate"`
	DueDate    time.Time  `json:"dueDate"`
	ReturnDate *time.Time `json:"returnDate,omitempty"`
	IsReturned bool       `json:"isReturned"`

	// Populated on list queries for display.
	BookTitle string `json:"bookTitle,omitempty"`
	UserName  string `json:"userName,omitempty"`
}

// Active reports whether the loan is still open.
func (l Loan) Active() bool {
	return !l.IsReturned
}

// Overdue reports whether an active loan is past its due date at now.
func (l Loan) Overdue(now time.Time) bool {
	return l.Active() && now.After(l.DueDate)
}

// BookInput carries the fields needed to register a book.
type BookInput struct {
	Title    string `validate:"required,max=200"`
	Author   string `validate:"required,max=100"`
	Year     int    `validate:"gte=-5000,lte=9999"`
	Category string `validate:"required,max=50"`
}

// UserInput carries the fields needed to register a user.
type UserInput struct {
	Name  string `validate:"required,max=100"`
	Email string `validate:"max=100"`
	Phone string `validate:"required,max=20"`
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Name  *string
	Email *string
	Phone *string
}

// BookCounts summarizes the catalog by availability.
type BookCounts struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Borrowed  int `json:"borrowed"`
}

// CategoryCount is the number of books registered under one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// LoanCounts summarizes loans by state.
type LoanCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Returned int `json:"returned"`
}

// Stats is a snapshot of row counts across the store.
type Stats struct {
	Books BookCounts `json:"books"`
	Users int        `json:"users"`
	Loans LoanCounts `json:"loans"`
}
