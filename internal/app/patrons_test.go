package app

import (
	"errors"
	"testing"
	"time"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
)

func strPtr(s string) *string { return &s }

func TestAddUserValidation(t *testing.T) {
	a := newTestApp(t, newTestStore(t), &clock{t: time.Now().UTC()})

	if _, err := a.Users.AddUser(domain.UserInput{Name: "Ana", Email: "ana@x.com", Phone: "1"}); err != nil {
		t.Fatalf("add user: %v", err)
	}
	if _, err := a.Users.AddUser(domain.UserInput{Name: "Ana 2", Email: "ana@x.com", Phone: "2"}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got: %v", err)
	}

	for _, email := range []string{"", "   ", "ana", "ana@x", "ana@x.c", "@x.com", "ana x@x.com"} {
		if _, err := a.Users.AddUser(domain.UserInput{Name: "Bad", Email: email, Phone: "3"}); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("email %q: expected invalid email, got: %v", email, err)
		}
	}
	if _, err := a.Users.AddUser(domain.UserInput{Name: "", Email: "nobody@x.com", Phone: "4"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty name, got: %v", err)
	}
}

func TestUpdateUserPartial(t *testing.T) {
	a := newTestApp(t, newTestStore(t), &clock{t: time.Now().UTC()})
	ana, err := a.Users.AddUser(domain.UserInput{Name: "Ana", Email: "ana@x.com", Phone: "11 1111-1111"})
	if err != nil {
		t.Fatalf("add ana: %v", err)
	}
	bruno, err := a.Users.AddUser(domain.UserInput{Name: "Bruno", Email: "bruno@x.com", Phone: "22 2222-2222"})
	if err != nil {
		t.Fatalf("add bruno: %v", err)
	}

	got, err := a.Users.UpdateUser(ana.ID, domain.UserUpdate{Phone: strPtr("33 3333-3333")})
	if err != nil {
		t.Fatalf("update phone: %v", err)
	}
	if got.Name != "Ana" || got.Email != "ana@x.com" || got.Phone != "33 3333-3333" {
		t.Fatalf("partial update changed other fields: %+v", got)
	}

	if _, err := a.Users.UpdateUser(ana.ID, domain.UserUpdate{Email: strPtr("bruno@x.com")}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got: %v", err)
	}
	if _, err := a.Users.UpdateUser(ana.ID, domain.UserUpdate{Email: strPtr("ana@x.com")}); err != nil {
		t.Fatalf("keeping own email should succeed: %v", err)
	}
	for _, email := range []string{"not-an-email", ""} {
		if _, err := a.Users.UpdateUser(bruno.ID, domain.UserUpdate{Email: strPtr(email)}); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("update email %q: expected invalid email, got: %v", email, err)
		}
	}
	if _, err := a.Users.UpdateUser(999, domain.UserUpdate{Name: strPtr("X")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}

	stored, ok, err := a.Users.GetUser(bruno.ID)
	if err != nil || !ok {
		t.Fatalf("get bruno: ok=%v err=%v", ok, err)
	}
	if stored.Email != "bruno@x.com" {
		t.Fatalf("failed update leaked: %+v", stored)
	}
}

func TestDeleteUserGuards(t *testing.T) {
	a := newTestApp(t, newTestStore(t), &clock{t: time.Now().UTC()})
	ana, book := seedAnaAnd1984(t, a)
	loan, err := a.Loans.CreateLoan(ana.ID, book.ID, 0)
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}

	if err := a.Users.DeleteUser(ana.ID); !errors.Is(err, ErrHasActiveLoans) {
		t.Fatalf("expected has active loans, got: %v", err)
	}
	if _, ok, _ := a.Users.GetUser(ana.ID); !ok {
		t.Fatalf("user deleted despite active loan")
	}

	if _, err := a.Loans.ReturnLoan(loan.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := a.Users.DeleteUser(ana.ID); err != nil {
		t.Fatalf("delete user with only returned loans: %v", err)
	}
	if _, ok, _ := a.Users.GetUser(ana.ID); ok {
		t.Fatalf("expected user to be gone")
	}
	history, err := a.Loans.GetUserHistory(ana.ID)
	if err != nil || len(history) != 0 {
		t.Fatalf("expected history removed, len=%d err=%v", len(history), err)
	}
	if err := a.Users.DeleteUser(ana.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}
}

func TestSearchUsers(t *testing.T) {
	a := newTestApp(t, newTestStore(t), &clock{t: time.Now().UTC()})
	for _, in := range []domain.UserInput{
		{Name: "Ana Souza", Email: "ana@x.com", Phone: "1"},
		{Name: "Bruno Lima", Email: "bruno@empresa.com.br", Phone: "2"},
	} {
		if _, err := a.Users.AddUser(in); err != nil {
			t.Fatalf("add %s: %v", in.Name, err)
		}
	}
	got, err := a.Users.SearchUsers("EMPRESA")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Bruno Lima" {
		t.Fatalf("unexpected search result: %+v", got)
	}
	if _, err := a.Users.SearchUsers("  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank search, got: %v", err)
	}
	all, err := a.Users.ListUsers()
	if err != nil || len(all) != 2 {
		t.Fatalf("list users: len=%d err=%v", len(all), err)
	}
}
