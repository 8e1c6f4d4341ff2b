package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

// accountStore implements types.AccountStore. The email column collates
// without case, so lookups and the uniqueness check ignore case.
type accountStore struct {
	backend *Backend
}

func (s *accountStore) Lookup(email string) (types.Account, error) {
	b := s.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.Account{}, types.ErrStoreDetached
	}
	return lookupAccount(b.db, email)
}

func lookupAccount(db *sql.DB, email string) (types.Account, error) {
	a, err := scanAccount(db.QueryRow("SELECT "+accountColumns+" FROM accounts WHERE email = ?", email))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Account{}, fmt.Errorf("%q: %w", email, types.ErrAccountNotFound)
	}
	if err != nil {
		return types.Account{}, fmt.Errorf("reading account: %w", err)
	}
	return a, nil
}

func (s *accountStore) Create(a types.Account) (string, error) {
	if strings.TrimSpace(a.Email) == "" {
		return "", types.ErrInvalidEmail
	}
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrStoreDetached
	}

	if _, err := lookupAccount(b.db, a.Email); err == nil {
		return "", fmt.Errorf("%q: %w", a.Email, types.ErrEmailTaken)
	} else if !errors.Is(err, types.ErrAccountNotFound) {
		return "", err
	}
	if a.UserID == "" {
		a.UserID = types.NewID()
	}
	err := b.mutate(func(tx *sql.Tx) error {
		return insertAccount(tx, a)
	}, accountsFile)
	if err != nil {
		return "", err
	}
	return a.UserID, nil
}

func (s *accountStore) Get(id string) (types.Account, error) {
	b := s.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.Account{}, types.ErrStoreDetached
	}

	a, err := scanAccount(b.db.QueryRow("SELECT "+accountColumns+" FROM accounts WHERE user_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Account{}, fmt.Errorf("%q: %w", id, types.ErrAccountNotFound)
	}
	if err != nil {
		return types.Account{}, fmt.Errorf("reading account: %w", err)
	}
	return a, nil
}

func (s *accountStore) Update(a types.Account) error {
	if strings.TrimSpace(a.Email) == "" {
		return types.ErrInvalidEmail
	}
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	if other, err := lookupAccount(b.db, a.Email); err == nil && other.UserID != a.UserID {
		return fmt.Errorf("%q: %w", a.Email, types.ErrEmailTaken)
	} else if err != nil && !errors.Is(err, types.ErrAccountNotFound) {
		return err
	}
	return b.mutate(func(tx *sql.Tx) error {
		n, err := updateAccount(tx, a)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%q: %w", a.UserID, types.ErrAccountNotFound)
		}
		return nil
	}, accountsFile)
}

func (s *accountStore) Delete(id string) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	return b.mutate(func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM accounts WHERE user_id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting account: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%q: %w", id, types.ErrAccountNotFound)
		}
		return nil
	}, accountsFile)
}

func (s *accountStore) List() ([]types.Account, error) {
	b := s.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.Query("SELECT " + accountColumns + " FROM accounts ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []types.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
