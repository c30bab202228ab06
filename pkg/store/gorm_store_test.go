package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(Config{
		Path:     filepath.Join(t.TempDir(), "db", "library.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustBook(t *testing.T, s Store, title, author, category string) domain.Book {
	t.Helper()
	b, err := s.CreateBook(domain.Book{Title: title, Author: author, Year: 1949, Category: category, IsAvailable: true})
	if err != nil {
		t.Fatalf("create book %q: %v", title, err)
	}
	return b
}

func mustUser(t *testing.T, s Store, name, email string) domain.User {
	t.Helper()
	u, err := s.CreateUser(domain.User{Name: name, Email: email, Phone: "11 99999-0000"})
	if err != nil {
		t.Fatalf("create user %q: %v", name, err)
	}
	return u
}

func TestNewGormStoreCreatesSchema(t *testing.T) {
	s := newTestStore(t)
	if !s.Exists() {
		t.Fatalf("expected database file at %s", s.Path())
	}
	if s.External() {
		t.Fatalf("file store reported external")
	}
	if !HasSchema(s.DB()) {
		t.Fatalf("expected all tables to exist")
	}
	if s.Size() <= 0 {
		t.Fatalf("expected positive size, got %d", s.Size())
	}
}

func TestNewGormStoreRequiresPath(t *testing.T) {
	if _, err := NewGormStore(Config{}); err == nil {
		t.Fatalf("expected error without path")
	}
}

func TestCreateBookKeepsUnavailableFlag(t *testing.T) {
	s := newTestStore(t)
	b, err := s.CreateBook(domain.Book{Title: "Dom Casmurro", Author: "Machado de Assis", Year: 1899, Category: "Romance"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	got, ok, err := s.GetBook(b.ID)
	if err != nil || !ok {
		t.Fatalf("get book: ok=%v err=%v", ok, err)
	}
	if got.IsAvailable {
		t.Fatalf("expected zero-value availability to persist as false")
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestGetBookMissing(t *testing.T) {
	s := newTestStore(t)
	if _, ok, err := s.GetBook(42); err != nil || ok {
		t.Fatalf("expected not found, ok=%v err=%v", ok, err)
	}
}

func TestListBooksFilters(t *testing.T) {
	s := newTestStore(t)
	orwell := mustBook(t, s, "1984", "George Orwell", "Ficção Científica")
	mustBook(t, s, "O Cortiço", "Aluísio Azevedo", "Romance")
	mustBook(t, s, "100%_puro", "Autor Teste", "Romance")
	mustBook(t, s, "O Tempo e o Vento", "Érico Veríssimo", "Épico")
	if ok, err := s.MarkBookUnavailable(orwell.ID); err != nil || !ok {
		t.Fatalf("mark unavailable: ok=%v err=%v", ok, err)
	}

	all, err := s.ListBooks(BookFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 || all[0].ID != orwell.ID {
		t.Fatalf("expected 4 books ordered by id, got %+v", all)
	}

	available := true
	avail, err := s.ListBooks(BookFilter{Available: &available})
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(avail) != 3 {
		t.Fatalf("expected 3 available, got %d", len(avail))
	}

	byAuthor, err := s.ListBooks(BookFilter{Search: "ORWELL"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(byAuthor) != 1 || byAuthor[0].Title != "1984" {
		t.Fatalf("unexpected search result: %+v", byAuthor)
	}

	for _, term := range []string{"Érico", "érico", "ÉRICO VERÍSSIMO"} {
		accented, err := s.ListBooks(BookFilter{Search: term})
		if err != nil {
			t.Fatalf("search %q: %v", term, err)
		}
		if len(accented) != 1 || accented[0].Title != "O Tempo e o Vento" {
			t.Fatalf("search %q: expected accented author to match ignoring case, got %+v", term, accented)
		}
	}

	literal, err := s.ListBooks(BookFilter{Search: "%_"})
	if err != nil {
		t.Fatalf("search literal: %v", err)
	}
	if len(literal) != 1 || literal[0].Title != "100%_puro" {
		t.Fatalf("expected wildcard characters to match literally, got %+v", literal)
	}

	romance, err := s.ListBooks(BookFilter{Category: "roman"})
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	if len(romance) != 2 {
		t.Fatalf("expected 2 romance books, got %d", len(romance))
	}

	epic, err := s.ListBooks(BookFilter{Category: "épico"})
	if err != nil {
		t.Fatalf("by accented category: %v", err)
	}
	if len(epic) != 1 {
		t.Fatalf("expected 1 book in Épico, got %d", len(epic))
	}
}

func TestMarkBookUnavailableIsCompareAndSet(t *testing.T) {
	s := newTestStore(t)
	b := mustBook(t, s, "1984", "George Orwell", "Ficção")

	ok, err := s.MarkBookUnavailable(b.ID)
	if err != nil || !ok {
		t.Fatalf("first flip: ok=%v err=%v", ok, err)
	}
	ok, err = s.MarkBookUnavailable(b.ID)
	if err != nil {
		t.Fatalf("second flip: %v", err)
	}
	if ok {
		t.Fatalf("expected second flip to report false")
	}

	if ok, err := s.MarkBookAvailable(b.ID); err != nil || !ok {
		t.Fatalf("mark available: ok=%v err=%v", ok, err)
	}
	if ok, err := s.MarkBookAvailable(999); err != nil || ok {
		t.Fatalf("expected missing book to report false, ok=%v err=%v", ok, err)
	}
}

func TestCountBooks(t *testing.T) {
	s := newTestStore(t)
	b := mustBook(t, s, "1984", "George Orwell", "Ficção")
	mustBook(t, s, "O Cortiço", "Aluísio Azevedo", "Romance")
	mustBook(t, s, "Iracema", "José de Alencar", "Romance")
	if _, err := s.MarkBookUnavailable(b.ID); err != nil {
		t.Fatalf("mark unavailable: %v", err)
	}

	counts, err := s.CountBooksByStatus()
	if err != nil {
		t.Fatalf("count by status: %v", err)
	}
	if counts != (domain.BookCounts{Total: 3, Available: 2, Borrowed: 1}) {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	cats, err := s.CountBooksByCategory()
	if err != nil {
		t.Fatalf("count by category: %v", err)
	}
	want := []domain.CategoryCount{{Category: "Ficção", Count: 1}, {Category: "Romance", Count: 2}}
	if len(cats) != len(want) {
		t.Fatalf("unexpected categories: %+v", cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Fatalf("category %d: want %+v got %+v", i, want[i], cats[i])
		}
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	mustUser(t, s, "Ana", "ana@x.com")
	_, err := s.CreateUser(domain.User{Name: "Outra Ana", Email: "ana@x.com", Phone: "1"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate error, got: %v", err)
	}
}

func TestUpdateAndSearchUsers(t *testing.T) {
	s := newTestStore(t)
	ana := mustUser(t, s, "Ana Souza", "ana@x.com")
	mustUser(t, s, "Bruno Lima", "bruno@y.com")
	mustUser(t, s, "Érico Veríssimo", "erico@z.com")

	ana.Phone = "11 1234-5678"
	ana.Name = "Ana Paula Souza"
	if err := s.UpdateUser(ana); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok, err := s.GetUserByEmail("ana@x.com")
	if err != nil || !ok {
		t.Fatalf("get by email: ok=%v err=%v", ok, err)
	}
	if got.Name != "Ana Paula Souza" || got.Phone != "11 1234-5678" {
		t.Fatalf("update not applied: %+v", got)
	}

	found, err := s.ListUsers("Y.COM")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Bruno Lima" {
		t.Fatalf("unexpected search result: %+v", found)
	}
	for _, term := range []string{"Érico", "érico", "VERÍSSIMO"} {
		accented, err := s.ListUsers(term)
		if err != nil {
			t.Fatalf("search %q: %v", term, err)
		}
		if len(accented) != 1 || accented[0].Email != "erico@z.com" {
			t.Fatalf("search %q: expected accented name to match ignoring case, got %+v", term, accented)
		}
	}
	all, err := s.ListUsers("")
	if err != nil || len(all) != 3 {
		t.Fatalf("list all: len=%d err=%v", len(all), err)
	}
}

func TestLoanLifecycleRows(t *testing.T) {
	s := newTestStore(t)
	u := mustUser(t, s, "Ana", "ana@x.com")
	b := mustBook(t, s, "1984", "George Orwell", "Ficção")
	now := time.Now().UTC().Truncate(time.Second)

	older, err := s.CreateLoan(domain.Loan{UserID: u.ID, BookID: b.ID, LoanDate: now.Add(-48 * time.Hour), DueDate: now.Add(-24 * time.Hour)})
	if err != nil {
		t.Fatalf("create older loan: %v", err)
	}
	newer, err := s.CreateLoan(domain.Loan{UserID: u.ID, BookID: b.ID, LoanDate: now, DueDate: now.Add(14 * 24 * time.Hour)})
	if err != nil {
		t.Fatalf("create newer loan: %v", err)
	}

	loans, err := s.ListLoans(LoanFilter{UserID: u.ID})
	if err != nil {
		t.Fatalf("list loans: %v", err)
	}
	if len(loans) != 2 || loans[0].ID != newer.ID || loans[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", loans)
	}
	if loans[0].BookTitle != "1984" || loans[0].UserName != "Ana" {
		t.Fatalf("expected display fields, got %+v", loans[0])
	}

	ok, err := s.MarkLoanReturned(older.ID, now)
	if err != nil || !ok {
		t.Fatalf("return: ok=%v err=%v", ok, err)
	}
	if ok, err := s.MarkLoanReturned(older.ID, now); err != nil || ok {
		t.Fatalf("expected second return to report false, ok=%v err=%v", ok, err)
	}
	if ok, err := s.ExtendLoan(older.ID, now.Add(time.Hour)); err != nil || ok {
		t.Fatalf("expected extend on returned loan to report false, ok=%v err=%v", ok, err)
	}

	due := now.Add(21 * 24 * time.Hour)
	if ok, err := s.ExtendLoan(newer.ID, due); err != nil || !ok {
		t.Fatalf("extend: ok=%v err=%v", ok, err)
	}
	got, ok, err := s.GetLoan(newer.ID)
	if err != nil || !ok {
		t.Fatalf("get loan: ok=%v err=%v", ok, err)
	}
	if !got.DueDate.Equal(due) || !got.LoanDate.Equal(now) {
		t.Fatalf("unexpected dates: loan=%v due=%v", got.LoanDate, got.DueDate)
	}

	returned := true
	closed, err := s.ListLoans(LoanFilter{Returned: &returned})
	if err != nil {
		t.Fatalf("list returned: %v", err)
	}
	if len(closed) != 1 || closed[0].ReturnDate == nil {
		t.Fatalf("expected one returned loan with return date, got %+v", closed)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Users != 1 || stats.Loans.Total != 2 || stats.Loans.Active != 1 || stats.Loans.Returned != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestDeleteLoansRequiresFilter(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.DeleteLoans(LoanFilter{}); err == nil {
		t.Fatalf("expected error for empty filter")
	}
}

func TestForeignKeysRestrictDelete(t *testing.T) {
	s := newTestStore(t)
	u := mustUser(t, s, "Ana", "ana@x.com")
	b := mustBook(t, s, "1984", "George Orwell", "Ficção")
	now := time.Now().UTC()
	if _, err := s.CreateLoan(domain.Loan{UserID: u.ID, BookID: b.ID, LoanDate: now, DueDate: now}); err != nil {
		t.Fatalf("create loan: %v", err)
	}
	if err := s.DeleteUser(u.ID); err == nil {
		t.Fatalf("expected foreign key violation deleting referenced user")
	}
	if err := s.DeleteBook(b.ID); err == nil {
		t.Fatalf("expected foreign key violation deleting referenced book")
	}

	returned := false
	n, err := s.DeleteLoans(LoanFilter{BookID: b.ID, Returned: &returned})
	if err != nil || n != 1 {
		t.Fatalf("delete loans: n=%d err=%v", n, err)
	}
	if err := s.DeleteBook(b.ID); err != nil {
		t.Fatalf("delete book: %v", err)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	b := mustBook(t, s, "1984", "George Orwell", "Ficção")
	boom := errors.New("boom")

	err := s.Transaction(func(tx Store) error {
		if _, err := tx.MarkBookUnavailable(b.ID); err != nil {
			return err
		}
		mustUser(t, tx, "Ana", "ana@x.com")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got: %v", err)
	}
	got, _, err := s.GetBook(b.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if !got.IsAvailable {
		t.Fatalf("expected availability change to roll back")
	}
	if _, ok, _ := s.GetUserByEmail("ana@x.com"); ok {
		t.Fatalf("expected user insert to roll back")
	}
}

func TestResetDropsData(t *testing.T) {
	s := newTestStore(t)
	mustBook(t, s, "1984", "George Orwell", "Ficção")
	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Books.Total != 0 {
		t.Fatalf("expected empty catalog after reset, got %d", stats.Books.Total)
	}
}
