package backup

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/store"
)

// Source is the live database a Manager copies from and restores into.
type Source interface {
	// Exists reports whether there is live data to back up.
	Exists() bool
	// Snapshot writes a consistent, standalone SQLite copy to dst.
	Snapshot(dst string) error
	// Restore replaces the live data with the content of the SQLite file src.
	Restore(src string) error
	// Describe names the source in messages.
	Describe() string
}

// FileSource is a SQLite database file.
type FileSource struct {
	Path string
}

// Exists reports whether the database file is present.
func (s FileSource) Exists() bool {
	info, err := os.Stat(s.Path)
	return err == nil && info.Mode().IsRegular()
}

// Snapshot uses VACUUM INTO so the copy is consistent even while other
// connections read the file.
func (s FileSource) Snapshot(dst string) error {
	db, err := store.OpenSQLite(s.Path, store.GormConfig("silent", nil))
	if err != nil {
		return err
	}
	defer store.CloseDB(db)
	if err := db.Exec("VACUUM INTO ?", dst).Error; err != nil {
		return fmt.Errorf("vacuum into %s: %w", dst, err)
	}
	return nil
}

// Restore stages src next to the live file and renames it into place.
func (s FileSource) Restore(src string) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".restore-*.db")
	if err != nil {
		return fmt.Errorf("stage restore: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	in, err := os.Open(src)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("open backup: %w", err)
	}
	_, err = io.Copy(tmp, in)
	in.Close()
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("copy backup: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		_ = os.Remove(s.Path + suffix)
	}
	return nil
}

// Describe returns the file path.
func (s FileSource) Describe() string {
	return s.Path
}

// DatabaseSource is an external database reached through GORM. Snapshots are
// row copies into a SQLite file so every artifact has the same format.
type DatabaseSource struct {
	DB *gorm.DB
}

// Exists always reports true; an external database has no file to check.
func (s DatabaseSource) Exists() bool {
	return true
}

// Snapshot copies every table inside one transaction.
func (s DatabaseSource) Snapshot(dst string) error {
	out, err := store.OpenSQLite(dst, store.GormConfig("silent", nil))
	if err != nil {
		return err
	}
	defer store.CloseDB(out)
	if err := store.Migrate(out); err != nil {
		return err
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return copyTables(tx, out)
	}, s.txOptions())
}

// Restore truncates and reloads every table inside one transaction.
func (s DatabaseSource) Restore(src string) error {
	in, err := store.OpenSQLite(src, store.GormConfig("silent", nil))
	if err != nil {
		return err
	}
	defer store.CloseDB(in)

	return s.DB.Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, m := range []any{&store.LoanModel{}, &store.BookModel{}, &store.UserModel{}} {
			if err := all.Delete(m).Error; err != nil {
				return fmt.Errorf("clear table: %w", err)
			}
		}
		if err := copyTables(in, tx); err != nil {
			return err
		}
		if tx.Dialector.Name() == "postgres" {
			for _, table := range store.TableNames {
				q := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 1), MAX(id) IS NOT NULL) FROM %[1]s", table)
				if err := tx.Exec(q).Error; err != nil {
					return fmt.Errorf("reset %s sequence: %w", table, err)
				}
			}
		}
		return nil
	})
}

// Describe names the external database.
func (s DatabaseSource) Describe() string {
	return "external database"
}

func (s DatabaseSource) txOptions() *sql.TxOptions {
	if s.DB.Dialector.Name() == "postgres" {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

func copyTables(from, to *gorm.DB) error {
	if err := copyRows[store.UserModel](from, to); err != nil {
		return fmt.Errorf("copy users: %w", err)
	}
	if err := copyRows[store.BookModel](from, to); err != nil {
		return fmt.Errorf("copy books: %w", err)
	}
	if err := copyRows[store.LoanModel](from, to); err != nil {
		return fmt.Errorf("copy loans: %w", err)
	}
	return nil
}

func copyRows[T any](from, to *gorm.DB) error {
	var rows []T
	if err := from.Order("id ASC").Find(&rows).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return to.Omit(clause.Associations).CreateInBatches(rows, 200).Error
}

var sqliteHeader = []byte("SQLite format 3\x00")

// Validate checks that path is a SQLite file carrying the library schema.
func Validate(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	header := make([]byte, len(sqliteHeader))
	_, err = io.ReadFull(f, header)
	f.Close()
	if err != nil || !bytes.Equal(header, sqliteHeader) {
		return fmt.Errorf("%w: %s is not a SQLite database", ErrInvalidBackup, path)
	}

	db, err := store.OpenSQLite(path, store.GormConfig("silent", nil))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	defer store.CloseDB(db)
	if !store.HasSchema(db) {
		return fmt.Errorf("%w: %s lacks the library tables", ErrInvalidBackup, path)
	}
	return nil
}
