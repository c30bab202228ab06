package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/store"
)

// PatronService manages users. Emails are unique and must look like
// local@domain.tld.
type PatronService struct {
	store  store.Store
	loans  *LoanService
	logger *slog.Logger
}

// AddUser registers a user.
func (s *PatronService) AddUser(in domain.UserInput) (domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := checkStruct(in); err != nil {
		return domain.User{}, err
	}
	if err := checkEmail(in.Email); err != nil {
		return domain.User{}, err
	}
	if _, taken, err := s.store.GetUserByEmail(in.Email); err != nil {
		return domain.User{}, fmt.Errorf("lookup email: %w", err)
	} else if taken {
		return domain.User{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, in.Email)
	}
	user, err := s.store.CreateUser(domain.User{Name: in.Name, Email: in.Email, Phone: in.Phone})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, in.Email)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user added", "user_id", user.ID)
	return user, nil
}

// UpdateUser applies the supplied fields of upd. Unset fields keep their value.
func (s *PatronService) UpdateUser(id int64, upd domain.UserUpdate) (domain.User, error) {
	user, ok, err := s.store.GetUser(id)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return domain.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if err := checkField("name", name, "required,max=100"); err != nil {
			return domain.User{}, err
		}
		user.Name = name
	}
	if upd.Phone != nil {
		phone := strings.TrimSpace(*upd.Phone)
		if err := checkField("phone", phone, "required,max=20"); err != nil {
			return domain.User{}, err
		}
		user.Phone = phone
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if err := checkField("email", email, "max=100"); err != nil {
			return domain.User{}, err
		}
		if err := checkEmail(email); err != nil {
			return domain.User{}, err
		}
		owner, taken, err := s.store.GetUserByEmail(email)
		if err != nil {
			return domain.User{}, fmt.Errorf("lookup email: %w", err)
		}
		if taken && owner.ID != id {
			return domain.User{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
		}
		user.Email = email
	}

	if err := s.store.UpdateUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, user.Email)
		}
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	s.logger.Info("user updated", "user_id", id)
	return user, nil
}

// DeleteUser removes a user with no active loans, together with their
// returned-loan history.
func (s *PatronService) DeleteUser(id int64) error {
	err := s.store.Transaction(func(tx store.Store) error {
		if _, ok, err := tx.GetUser(id); err != nil {
			return fmt.Errorf("get user: %w", err)
		} else if !ok {
			return fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		active, err := s.loans.bind(tx).GetActiveLoansByUser(id)
		if err != nil {
			return fmt.Errorf("list active loans: %w", err)
		}
		if len(active) > 0 {
			return fmt.Errorf("user %d holds %d: %w", id, len(active), ErrHasActiveLoans)
		}
		if _, err := tx.DeleteLoans(store.LoanFilter{UserID: id, Returned: boolPtr(true)}); err != nil {
			return fmt.Errorf("delete loan history: %w", err)
		}
		if err := tx.DeleteUser(id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// GetUser retrieves a user by ID.
func (s *PatronService) GetUser(id int64) (domain.User, bool, error) {
	return s.store.GetUser(id)
}

// GetUserByEmail retrieves a user by exact email.
func (s *PatronService) GetUserByEmail(email string) (domain.User, bool, error) {
	return s.store.GetUserByEmail(strings.TrimSpace(email))
}

// ListUsers returns all users ordered by ID.
func (s *PatronService) ListUsers() ([]domain.User, error) {
	return s.store.ListUsers("")
}

// SearchUsers matches term against name or email, ignoring case.
func (s *PatronService) SearchUsers(term string) ([]domain.User, error) {
	if strings.TrimSpace(term) == "" {
		return nil, fmt.Errorf("%w: search term is required", ErrInvalidInput)
	}
	return s.store.ListUsers(term)
}
