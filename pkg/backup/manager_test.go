package backup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/store"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T, path string) *store.GormStore {
	t.Helper()
	s, err := store.NewGormStore(store.Config{Path: path, LogLevel: "silent"})
	require.NoError(t, err)
	return s
}

func addUser(t *testing.T, s store.Store, name, email string) domain.User {
	t.Helper()
	u, err := s.CreateUser(domain.User{Name: name, Email: email, Phone: "1"})
	require.NoError(t, err)
	return u
}

func userEmails(t *testing.T, path string) []string {
	t.Helper()
	s := openStore(t, path)
	defer s.Close()
	users, err := s.ListUsers("")
	require.NoError(t, err)
	emails := make([]string, 0, len(users))
	for _, u := range users {
		emails = append(emails, u.Email)
	}
	return emails
}

func newManager(t *testing.T, src Source, dir string, mirror *fakeMirror) *Manager {
	t.Helper()
	cfg := Config{Dir: dir, Now: func() time.Time { return fixedNow }, Logger: quietLogger()}
	if mirror != nil {
		cfg.Mirror = mirror
	}
	m, err := NewManager(src, cfg)
	require.NoError(t, err)
	return m
}

type fakeMirror struct {
	mu         sync.Mutex
	puts       map[string]int64
	deletes    []string
	failPut    bool
	failDelete bool
}

func (f *fakeMirror) Put(_ context.Context, key string, r io.Reader, size int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return errors.New("mirror down")
	}
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return err
	}
	if n != size {
		return errors.New("short upload")
	}
	if f.puts == nil {
		f.puts = map[string]int64{}
	}
	f.puts[key] = n
	return nil
}

func (f *fakeMirror) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	if f.failDelete {
		return errors.New("mirror down")
	}
	return nil
}

// brokenSource wraps a FileSource and fails snapshots.
type brokenSource struct {
	FileSource
	restored []string
}

func (b *brokenSource) Snapshot(string) error { return errors.New("disk full") }

func (b *brokenSource) Restore(src string) error {
	b.restored = append(b.restored, src)
	return nil
}

func TestNewManagerValidates(t *testing.T) {
	_, err := NewManager(nil, Config{Dir: t.TempDir()})
	require.Error(t, err)
	_, err = NewManager(FileSource{Path: "x.db"}, Config{})
	require.Error(t, err)
}

func TestCreateBackupSourceMissing(t *testing.T) {
	m := newManager(t, FileSource{Path: filepath.Join(t.TempDir(), "missing.db")}, t.TempDir(), nil)

	_, err := m.CreateBackup(context.Background(), "")
	require.ErrorIs(t, err, ErrSourceMissing)
}

func TestCreateBackupGeneratedNames(t *testing.T) {
	root := t.TempDir()
	live := filepath.Join(root, "library.db")
	s := openStore(t, live)
	addUser(t, s, "Ana", "ana@x.com")
	require.NoError(t, s.Close())

	mirror := &fakeMirror{}
	m := newManager(t, FileSource{Path: live}, filepath.Join(root, "backups"), mirror)

	first, err := m.CreateBackup(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "library_backup_20250310_120000.db", first.Name)
	assert.Positive(t, first.Size)
	assert.FileExists(t, first.Path)

	second, err := m.CreateBackup(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "library_backup_20250310_120000_2.db", second.Name)

	require.NoError(t, Validate(first.Path))
	assert.Equal(t, []string{"ana@x.com"}, userEmails(t, first.Path))
	assert.Equal(t, first.Size, mirror.puts[first.Name])
	assert.Contains(t, mirror.puts, second.Name)
}

func TestCreateBackupNamed(t *testing.T) {
	root := t.TempDir()
	live := filepath.Join(root, "library.db")
	require.NoError(t, openStore(t, live).Close())
	m := newManager(t, FileSource{Path: live}, filepath.Join(root, "backups"), nil)

	info, err := m.CreateBackup(context.Background(), "nightly")
	require.NoError(t, err)
	assert.Equal(t, "nightly.db", info.Name)

	_, err = m.CreateBackup(context.Background(), "nightly.db")
	require.ErrorIs(t, err, ErrBackupExists)

	_, err = m.CreateBackup(context.Background(), "../escape")
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestCreateBackupMirrorFailureIsNotFatal(t *testing.T) {
	root := t.TempDir()
	live := filepath.Join(root, "library.db")
	require.NoError(t, openStore(t, live).Close())
	m := newManager(t, FileSource{Path: live}, filepath.Join(root, "backups"), &fakeMirror{failPut: true})

	info, err := m.CreateBackup(context.Background(), "")
	require.NoError(t, err)
	assert.FileExists(t, info.Path)
}

func writeBackupFile(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestListBackupsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	writeBackupFile(t, dir, "b.db", base.Add(2*time.Hour))
	writeBackupFile(t, dir, "a.db", base.Add(3*time.Hour))
	writeBackupFile(t, dir, "c.db", base.Add(1*time.Hour))
	writeBackupFile(t, dir, "notes.txt", base.Add(4*time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.db"), 0o755))

	m := newManager(t, FileSource{Path: filepath.Join(dir, "live.db")}, dir, nil)
	list, err := m.ListBackups()
	require.NoError(t, err)

	names := make([]string, 0, len(list))
	for _, b := range list {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"a.db", "b.db", "c.db"}, names)
	assert.True(t, list[0].ModTime.Equal(base.Add(3*time.Hour)))
}

func TestListBackupsMissingDir(t *testing.T) {
	m := newManager(t, FileSource{Path: "live.db"}, filepath.Join(t.TempDir(), "nope"), nil)
	list, err := m.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCleanupOldBackupsKeepsMostRecent(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"1.db", "2.db", "3.db", "4.db", "5.db"} {
		writeBackupFile(t, dir, name, base.Add(time.Duration(i)*time.Hour))
	}
	mirror := &fakeMirror{failDelete: true}
	m := newManager(t, FileSource{Path: filepath.Join(dir, "live.db")}, dir, mirror)

	res, err := m.CleanupOldBackups(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, res.Kept, 2)
	require.Len(t, res.Removed, 3)
	assert.Empty(t, res.Failed)
	assert.Equal(t, "5.db", res.Kept[0].Name)
	assert.Equal(t, "4.db", res.Kept[1].Name)
	assert.ElementsMatch(t, []string{"1.db", "2.db", "3.db"}, mirror.deletes)

	list, err := m.ListBackups()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	res, err = m.CleanupOldBackups(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, res.Removed)
	assert.Len(t, res.Kept, 2)

	_, err = m.CleanupOldBackups(context.Background(), -1)
	require.ErrorIs(t, err, ErrInvalidKeepCount)
}

func TestCleanupOldBackupsContinuesAfterFailedRemoval(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"1.db", "2.db", "3.db", "4.db", "5.db"} {
		writeBackupFile(t, dir, name, base.Add(time.Duration(i)*time.Hour))
	}
	mirror := &fakeMirror{}
	m := newManager(t, FileSource{Path: filepath.Join(dir, "live.db")}, dir, mirror)
	locked := filepath.Join(dir, "2.db")
	m.remove = func(path string) error {
		if path == locked {
			return os.ErrPermission
		}
		return os.Remove(path)
	}

	res, err := m.CleanupOldBackups(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "2.db", res.Failed[0].Name)
	require.ErrorIs(t, res.Failed[0].Err, os.ErrPermission)
	require.Len(t, res.Removed, 2)
	assert.Equal(t, "3.db", res.Removed[0].Name)
	assert.Equal(t, "1.db", res.Removed[1].Name)
	assert.ElementsMatch(t, []string{"1.db", "3.db"}, mirror.deletes)

	for _, name := range []string{"1.db", "3.db"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.ErrorIs(t, err, os.ErrNotExist, name)
	}
	assert.FileExists(t, locked)
}

func TestRestoreBackupMissingLeavesLiveUntouched(t *testing.T) {
	root := t.TempDir()
	live := filepath.Join(root, "library.db")
	s := openStore(t, live)
	addUser(t, s, "Ana", "ana@x.com")
	require.NoError(t, s.Close())
	m := newManager(t, FileSource{Path: live}, filepath.Join(root, "backups"), nil)

	_, err := m.RestoreBackup(context.Background(), filepath.Join(root, "nope.db"), RestoreOptions{Confirmed: true})
	require.ErrorIs(t, err, ErrBackupMissing)
	assert.Equal(t, []string{"ana@x.com"}, userEmails(t, live))

	list, err := m.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, list, "no safety backup should be taken")
}

func TestRestoreBackupRequiresConfirmation(t *testing.T) {
	root := t.TempDir()
	live := filepath.Join(root, "library.db")
	require.NoError(t, openStore(t, live).Close())
	m := newManager(t, FileSource{Path: live}, filepath.Join(root, "backups"), nil)
	b, err := m.CreateBackup(context.Background(), "b1")
	require.NoError(t, err)

	_, err = m.RestoreBackup(context.Background(), b.Path, RestoreOptions{})
	require.ErrorIs(t, err, ErrCancelled)
}

func TestRestoreBackupRejectsInvalidArtifact(t *testing.T) {
	root := t.TempDir()
	live := filepath.Join(root, "library.db")
	require.NoError(t, openStore(t, live).Close())
	m := newManager(t, FileSource{Path: live}, filepath.Join(root, "backups"), nil)

	junk := filepath.Join(root, "junk.db")
	require.NoError(t, os.WriteFile(junk, []byte(strings.Repeat("not sqlite", 10)), 0o644))
	_, err := m.RestoreBackup(context.Background(), junk, RestoreOptions{Confirmed: true})
	require.ErrorIs(t, err, ErrInvalidBackup)

	empty := filepath.Join(root, "empty.db")
	es, err := store.OpenSQLite(empty, nil)
	require.NoError(t, err)
	require.NoError(t, es.Exec("CREATE TABLE other (id INTEGER)").Error)
	require.NoError(t, store.CloseDB(es))
	_, err = m.RestoreBackup(context.Background(), empty, RestoreOptions{Confirmed: true})
	require.ErrorIs(t, err, ErrInvalidBackup)
}

func TestRestoreBackupEndToEnd(t *testing.T) {
	root := t.TempDir()
	live := filepath.Join(root, "library.db")
	s := openStore(t, live)
	addUser(t, s, "Ana", "ana@x.com")
	m := newManager(t, FileSource{Path: live}, filepath.Join(root, "backups"), nil)

	b1, err := m.CreateBackup(context.Background(), "b1")
	require.NoError(t, err)
	addUser(t, s, "Bruno", "bruno@x.com")
	require.NoError(t, s.Close())

	res, err := m.RestoreBackup(context.Background(), b1.Path, RestoreOptions{Confirmed: true})
	require.NoError(t, err)
	require.NotNil(t, res.SafetyBackup)
	assert.True(t, strings.HasPrefix(res.SafetyBackup.Name, SafetyPrefix+"_"))
	assert.Equal(t, b1.Path, res.Restored)

	assert.Equal(t, []string{"ana@x.com"}, userEmails(t, live))
	assert.Equal(t, []string{"ana@x.com", "bruno@x.com"}, userEmails(t, res.SafetyBackup.Path))
}

func TestRestoreBackupIntoMissingDatabaseSkipsSafety(t *testing.T) {
	root := t.TempDir()
	live := filepath.Join(root, "library.db")
	s := openStore(t, live)
	addUser(t, s, "Ana", "ana@x.com")
	require.NoError(t, s.Close())
	m := newManager(t, FileSource{Path: live}, filepath.Join(root, "backups"), nil)
	b1, err := m.CreateBackup(context.Background(), "b1")
	require.NoError(t, err)
	require.NoError(t, os.Remove(live))

	res, err := m.RestoreBackup(context.Background(), b1.Path, RestoreOptions{Confirmed: true})
	require.NoError(t, err)
	assert.Nil(t, res.SafetyBackup)
	assert.Equal(t, []string{"ana@x.com"}, userEmails(t, live))
}

func TestRestoreBackupSafetyFailure(t *testing.T) {
	root := t.TempDir()
	live := filepath.Join(root, "library.db")
	require.NoError(t, openStore(t, live).Close())
	good := newManager(t, FileSource{Path: live}, filepath.Join(root, "backups"), nil)
	b1, err := good.CreateBackup(context.Background(), "b1")
	require.NoError(t, err)

	src := &brokenSource{FileSource: FileSource{Path: live}}
	m := newManager(t, src, filepath.Join(root, "backups"), nil)

	_, err = m.RestoreBackup(context.Background(), b1.Path, RestoreOptions{Confirmed: true})
	require.ErrorIs(t, err, ErrSafetyBackupFailed)
	assert.Empty(t, src.restored)

	res, err := m.RestoreBackup(context.Background(), b1.Path, RestoreOptions{Confirmed: true, AllowWithoutSafetyBackup: true})
	require.NoError(t, err)
	assert.Error(t, res.SafetyErr)
	assert.Nil(t, res.SafetyBackup)
	assert.Equal(t, []string{b1.Path}, src.restored)
}

func TestDatabaseSourceRoundTrip(t *testing.T) {
	root := t.TempDir()
	s := openStore(t, filepath.Join(root, "external.db"))
	defer s.Close()
	ana := addUser(t, s, "Ana", "ana@x.com")
	book, err := s.CreateBook(domain.Book{Title: "1984", Author: "George Orwell", Year: 1949, Category: "Ficção"})
	require.NoError(t, err)
	_, err = s.CreateLoan(domain.Loan{UserID: ana.ID, BookID: book.ID, LoanDate: fixedNow, DueDate: fixedNow.AddDate(0, 0, 14)})
	require.NoError(t, err)

	src := DatabaseSource{DB: s.DB()}
	m := newManager(t, src, filepath.Join(root, "backups"), nil)
	b1, err := m.CreateBackup(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, Validate(b1.Path))

	addUser(t, s, "Bruno", "bruno@x.com")
	res, err := m.RestoreBackup(context.Background(), b1.Path, RestoreOptions{Confirmed: true})
	require.NoError(t, err)
	require.NotNil(t, res.SafetyBackup)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Users)
	assert.Equal(t, 1, stats.Books.Total)
	assert.Equal(t, 1, stats.Loans.Active)

	loans, err := s.ListLoans(store.LoanFilter{})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "1984", loans[0].BookTitle)
	assert.Equal(t, "Ana", loans[0].UserName)

	next := addUser(t, s, "Carla", "carla@x.com")
	assert.Greater(t, next.ID, ana.ID)
}
