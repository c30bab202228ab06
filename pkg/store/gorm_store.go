package store

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
)

// Config selects the backing database.
type Config struct {
	// Path is the SQLite file used when DatabaseURL is empty.
	Path string
	// DatabaseURL points at an external Postgres database and takes
	// precedence over Path.
	DatabaseURL string
	// LogLevel is one of silent, error, warn, info. Defaults to warn.
	LogLevel string
	// LogWriter receives GORM log lines. Defaults to os.Stderr.
	LogWriter io.Writer
}

// foldFunc lowercases text with Unicode case rules. SQLite's built-in LOWER
// only folds ASCII, so searches on SQLite use this instead.
const foldFunc = "unicode_lower"

func init() {
	gosqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, foldCase)
}

func foldCase(_ *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// GormStore implements Store using GORM over SQLite or Postgres.
type GormStore struct {
	db   *gorm.DB
	path string
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(cfg Config) (*GormStore, error) {
	gormCfg := GormConfig(cfg.LogLevel, cfg.LogWriter)
	if cfg.DatabaseURL != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if err := Migrate(db); err != nil {
			return nil, err
		}
		return &GormStore{db: db}, nil
	}

	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("database path required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := OpenSQLite(cfg.Path, gormCfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		closeDB(db)
		return nil, err
	}
	return &GormStore{db: db, path: cfg.Path}, nil
}

// GormConfig builds the GORM configuration shared by every connection the
// application opens.
func GormConfig(level string, w io.Writer) *gorm.Config {
	if w == nil {
		w = os.Stderr
	}
	gormLog := gormlogger.New(
		log.New(w, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  parseLogLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// OpenSQLite opens a SQLite file with foreign keys enforced. The file is
// created if it does not exist.
func OpenSQLite(path string, cfg *gorm.Config) (*gorm.DB, error) {
	if cfg == nil {
		cfg = GormConfig("silent", nil)
	}
	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	// A single connection keeps SQLite single-writer without lock contention.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func sqliteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate creates the books, users, and loans tables if absent.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// HasSchema reports whether every schema table exists in db.
func HasSchema(db *gorm.DB) bool {
	m := db.Migrator()
	for _, name := range TableNames {
		if !m.HasTable(name) {
			return false
		}
	}
	return true
}

// CloseDB releases the connection pool behind db.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeDB(db *gorm.DB) {
	_ = CloseDB(db)
}

// DB exposes the underlying handle for backup sources.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// Path returns the SQLite file, or "" when backed by an external database.
func (s *GormStore) Path() string {
	return s.path
}

// External reports whether the store is backed by DATABASE_URL.
func (s *GormStore) External() bool {
	return s.path == ""
}

// Exists reports whether the live database is present. External databases
// always report true.
func (s *GormStore) Exists() bool {
	if s.External() {
		return true
	}
	_, err := os.Stat(s.path)
	return err == nil
}

// Size returns the database file size in bytes, or 0 for external databases.
func (s *GormStore) Size() int64 {
	if s.External() {
		return 0
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	return CloseDB(s.db)
}

// Reset drops every table and recreates the empty schema.
func (s *GormStore) Reset() error {
	m := s.db.Migrator()
	for i := len(TableNames) - 1; i >= 0; i-- {
		if err := m.DropTable(TableNames[i]); err != nil {
			return fmt.Errorf("drop %s: %w", TableNames[i], err)
		}
	}
	return Migrate(s.db)
}

// Transaction runs fn inside a database transaction.
func (s *GormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, path: s.path})
	})
}

// CreateBook inserts a book and returns it with its assigned ID.
func (s *GormStore) CreateBook(b domain.Book) (domain.Book, error) {
	model := bookToModel(b)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Book{}, translateErr(err)
	}
	return bookFromModel(model), nil
}

// GetBook retrieves a book.
func (s *GormStore) GetBook(id int64) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks returns books ordered by ID.
func (s *GormStore) ListBooks(filter BookFilter) ([]domain.Book, error) {
	tx := s.db.Model(&BookModel{}).Order("id ASC")
	if filter.Available != nil {
		tx = tx.Where("is_available = ?", *filter.Available)
	}
	if c := strings.TrimSpace(filter.Category); c != "" {
		tx = tx.Where(s.lower("category")+` LIKE ? ESCAPE '\'`, likePattern(c))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		p := likePattern(q)
		tx = tx.Where("("+s.lower("title")+` LIKE ? ESCAPE '\' OR `+s.lower("author")+` LIKE ? ESCAPE '\')`, p, p)
	}
	var models []BookModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// MarkBookUnavailable flips an available book to unavailable.
func (s *GormStore) MarkBookUnavailable(id int64) (bool, error) {
	res := s.db.Model(&BookModel{}).
		Where("id = ? AND is_available = ?", id, true).
		Update("is_available", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkBookAvailable sets a book available.
func (s *GormStore) MarkBookAvailable(id int64) (bool, error) {
	res := s.db.Model(&BookModel{}).
		Where("id = ?", id).
		Update("is_available", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteBook removes a book row.
func (s *GormStore) DeleteBook(id int64) error {
	return translateErr(s.db.Delete(&BookModel{}, "id = ?", id).Error)
}

// CountBooksByStatus returns totals by availability.
func (s *GormStore) CountBooksByStatus() (domain.BookCounts, error) {
	var total, available int64
	if err := s.db.Model(&BookModel{}).Count(&total).Error; err != nil {
		return domain.BookCounts{}, err
	}
	if err := s.db.Model(&BookModel{}).Where("is_available = ?", true).Count(&available).Error; err != nil {
		return domain.BookCounts{}, err
	}
	return domain.BookCounts{
		Total:     int(total),
		Available: int(available),
		Borrowed:  int(total - available),
	}, nil
}

// CountBooksByCategory returns the number of books per category ordered by name.
func (s *GormStore) CountBooksByCategory() ([]domain.CategoryCount, error) {
	var rows []struct {
		Category string
		Count    int
	}
	if err := s.db.Model(&BookModel{}).
		Select("category, COUNT(id) AS count").
		Group("category").
		Order("category ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	res := make([]domain.CategoryCount, 0, len(rows))
	for _, r := range rows {
		res = append(res, domain.CategoryCount{Category: r.Category, Count: r.Count})
	}
	return res, nil
}

// CreateUser inserts a user. A taken email yields ErrDuplicate.
func (s *GormStore) CreateUser(u domain.User) (domain.User, error) {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.User{}, translateErr(err)
	}
	return userFromModel(model), nil
}

// GetUser returns a user by ID.
func (s *GormStore) GetUser(id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns users ordered by ID, optionally filtered by a
// case-insensitive substring of name or email.
func (s *GormStore) ListUsers(search string) ([]domain.User, error) {
	tx := s.db.Model(&UserModel{}).Order("id ASC")
	if q := strings.TrimSpace(search); q != "" {
		p := likePattern(q)
		tx = tx.Where("("+s.lower("name")+` LIKE ? ESCAPE '\' OR `+s.lower("email")+` LIKE ? ESCAPE '\')`, p, p)
	}
	var models []UserModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// UpdateUser writes name, email and phone of an existing user.
func (s *GormStore) UpdateUser(u domain.User) error {
	return translateErr(s.db.Model(&UserModel{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"name":  u.Name,
			"email": u.Email,
			"phone": u.Phone,
		}).Error)
}

// DeleteUser removes a user row.
func (s *GormStore) DeleteUser(id int64) error {
	return translateErr(s.db.Delete(&UserModel{}, "id = ?", id).Error)
}

// CreateLoan inserts a loan row.
func (s *GormStore) CreateLoan(l domain.Loan) (domain.Loan, error) {
	model := loanToModel(l)
	if err := s.db.Omit(clause.Associations).Create(&model).Error; err != nil {
		return domain.Loan{}, translateErr(err)
	}
	return loanFromModel(model), nil
}

// GetLoan retrieves a loan with its book and user.
func (s *GormStore) GetLoan(id int64) (domain.Loan, bool, error) {
	var model LoanModel
	if err := s.db.Preload("Book").Preload("User").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Loan{}, false, nil
		}
		return domain.Loan{}, false, err
	}
	return loanFromModel(model), true, nil
}

// ListLoans returns loans newest first.
func (s *GormStore) ListLoans(filter LoanFilter) ([]domain.Loan, error) {
	tx := applyLoanFilter(s.db.Preload("Book").Preload("User"), filter).
		Order("loan_date DESC").
		Order("id DESC")
	var models []LoanModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Loan, 0, len(models))
	for _, m := range models {
		res = append(res, loanFromModel(m))
	}
	return res, nil
}

// MarkLoanReturned closes an active loan.
func (s *GormStore) MarkLoanReturned(id int64, returnedAt time.Time) (bool, error) {
	res := s.db.Model(&LoanModel{}).
		Where("id = ? AND is_returned = ?", id, false).
		Updates(map[string]any{
			"is_returned": true,
			"return_date": returnedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ExtendLoan moves the due date of an active loan.
func (s *GormStore) ExtendLoan(id int64, dueDate time.Time) (bool, error) {
	res := s.db.Model(&LoanModel{}).
		Where("id = ? AND is_returned = ?", id, false).
		Update("due_date", dueDate)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteLoans removes loans matching filter. An empty filter is rejected.
func (s *GormStore) DeleteLoans(filter LoanFilter) (int64, error) {
	if filter.UserID == 0 && filter.BookID == 0 && filter.Returned == nil {
		return 0, errors.New("delete loans: filter required")
	}
	res := applyLoanFilter(s.db, filter).Delete(&LoanModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Stats counts rows across all tables.
func (s *GormStore) Stats() (domain.Stats, error) {
	books, err := s.CountBooksByStatus()
	if err != nil {
		return domain.Stats{}, err
	}
	var users, loans, active int64
	if err := s.db.Model(&UserModel{}).Count(&users).Error; err != nil {
		return domain.Stats{}, err
	}
	if err := s.db.Model(&LoanModel{}).Count(&loans).Error; err != nil {
		return domain.Stats{}, err
	}
	if err := s.db.Model(&LoanModel{}).Where("is_returned = ?", false).Count(&active).Error; err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{
		Books: books,
		Users: int(users),
		Loans: domain.LoanCounts{
			Total:    int(loans),
			Active:   int(active),
			Returned: int(loans - active),
		},
	}, nil
}

func applyLoanFilter(tx *gorm.DB, filter LoanFilter) *gorm.DB {
	if filter.UserID != 0 {
		tx = tx.Where("user_id = ?", filter.UserID)
	}
	if filter.BookID != 0 {
		tx = tx.Where("book_id = ?", filter.BookID)
	}
	if filter.Returned != nil {
		tx = tx.Where("is_returned = ?", *filter.Returned)
	}
	return tx
}

// lower wraps col in the dialect's Unicode-aware lowercase function.
func (s *GormStore) lower(col string) string {
	if s.db.Dialector.Name() == sqlite.DriverName {
		return foldFunc + "(" + col + ")"
	}
	return "LOWER(" + col + ")"
}

// likePattern lowercases term with the same rules as foldCase.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Year:        b.Year,
		Category:    b.Category,
		IsAvailable: b.IsAvailable,
		CreatedAt:   b.CreatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:          m.ID,
		Title:       m.Title,
		Author:      m.Author,
		Year:        m.Year,
		Category:    m.Category,
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
	}
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		CreatedAt: m.CreatedAt,
	}
}

func loanToModel(l domain.Loan) LoanModel {
	return LoanModel{
		ID:         l.ID,
		UserID:     l.UserID,
		BookID:     l.BookID,
		LoanDate:   l.LoanDate,
		DueDate:    l.DueDate,
		ReturnDate: l.ReturnDate,
		IsReturned: l.IsReturned,
	}
}

func loanFromModel(m LoanModel) domain.Loan {
	return domain.Loan{
		ID:         m.ID,
		UserID:     m.UserID,
		BookID:     m.BookID,
		LoanDate:   m.LoanDate,
		DueDate:    m.DueDate,
		ReturnDate: m.ReturnDate,
		IsReturned: m.IsReturned,
		BookTitle:  m.Book.Title,
		UserName:   m.User.Name,
	}
}
