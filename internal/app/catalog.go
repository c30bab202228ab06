package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/store"
)

// CatalogService manages books.
type CatalogService struct {
	store  store.Store
	logger *slog.Logger
}

// AddBook registers a new, available book.
func (s *CatalogService) AddBook(in domain.BookInput) (domain.Book, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Category = strings.TrimSpace(in.Category)
	if err := checkStruct(in); err != nil {
		return domain.Book{}, err
	}
	book, err := s.store.CreateBook(domain.Book{
		Title:       in.Title,
		Author:      in.Author,
		Year:        in.Year,
		Category:    in.Category,
		IsAvailable: true,
	})
	if err != nil {
		return domain.Book{}, fmt.Errorf("create book: %w", err)
	}
	s.logger.Info("book added", "book_id", book.ID)
	return book, nil
}

// GetBook retrieves a book by ID.
func (s *CatalogService) GetBook(id int64) (domain.Book, bool, error) {
	return s.store.GetBook(id)
}

// ListBooks returns the full catalog ordered by ID.
func (s *CatalogService) ListBooks() ([]domain.Book, error) {
	return s.store.ListBooks(store.BookFilter{})
}

// ListAvailableBooks returns books not currently on loan.
func (s *CatalogService) ListAvailableBooks() ([]domain.Book, error) {
	return s.store.ListBooks(store.BookFilter{Available: boolPtr(true)})
}

// ListBooksByCategory matches category as a case-insensitive substring.
func (s *CatalogService) ListBooksByCategory(category string) ([]domain.Book, error) {
	return s.store.ListBooks(store.BookFilter{Category: category})
}

// SearchBooks matches term against title or author, ignoring case.
func (s *CatalogService) SearchBooks(term string) ([]domain.Book, error) {
	if strings.TrimSpace(term) == "" {
		return nil, fmt.Errorf("%w: search term is required", ErrInvalidInput)
	}
	return s.store.ListBooks(store.BookFilter{Search: term})
}

// DeleteBook removes a book and its returned-loan history. A book on loan
// cannot be deleted.
func (s *CatalogService) DeleteBook(id int64) error {
	err := s.store.Transaction(func(tx store.Store) error {
		book, ok, err := tx.GetBook(id)
		if err != nil {
			return fmt.Errorf("get book: %w", err)
		}
		if !ok {
			return fmt.Errorf("book %d: %w", id, ErrNotFound)
		}
		active, err := tx.ListLoans(store.LoanFilter{BookID: id, Returned: boolPtr(false)})
		if err != nil {
			return fmt.Errorf("list active loans: %w", err)
		}
		if !book.IsAvailable || len(active) > 0 {
			return fmt.Errorf("book %d: %w", id, ErrBookOnLoan)
		}
		if _, err := tx.DeleteLoans(store.LoanFilter{BookID: id, Returned: boolPtr(true)}); err != nil {
			return fmt.Errorf("delete loan history: %w", err)
		}
		if err := tx.DeleteBook(id); err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("book deleted", "book_id", id)
	return nil
}

// CountByStatus summarizes the catalog by availability.
func (s *CatalogService) CountByStatus() (domain.BookCounts, error) {
	return s.store.CountBooksByStatus()
}

// CountByCategory returns per-category totals ordered by category.
func (s *CatalogService) CountByCategory() ([]domain.CategoryCount, error) {
	return s.store.CountBooksByCategory()
}

// Stats returns row counts across books, users, and loans.
func (s *CatalogService) Stats() (domain.Stats, error) {
	return s.store.Stats()
}
