package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/storage"
)

const (
	// Extension is the suffix every backup artifact carries.
	Extension = ".db"

	DefaultPrefix = "library_backup"
	SafetyPrefix  = "before_restore"
	DefaultKeep   = 5

	timestampLayout = "20060102_150405"
	contentType     = "application/vnd.sqlite3"
)

// Config configures a Manager.
type Config struct {
	// Dir holds the backup artifacts.
	Dir string
	// Prefix names generated backups. Defaults to DefaultPrefix.
	Prefix string
	// Mirror, when set, receives a copy of every new artifact.
	Mirror storage.ObjectStore
	Now    func() time.Time
	Logger *slog.Logger
}

// Info describes one backup artifact.
type Info struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// RestoreOptions gate a restore.
type RestoreOptions struct {
	// Confirmed must be true or the restore is cancelled.
	Confirmed bool
	// AllowWithoutSafetyBackup proceeds when the pre-restore copy fails.
	AllowWithoutSafetyBackup bool
}

// RestoreResult reports what a restore did.
type RestoreResult struct {
	Restored string
	// SafetyBackup is nil when no pre-restore copy was taken.
	SafetyBackup *Info
	// SafetyErr holds the pre-restore failure the caller chose to ignore.
	SafetyErr error
}

// CleanupFailure is a backup that could not be removed.
type CleanupFailure struct {
	Info
	Err error
}

// CleanupResult reports the outcome of retention pruning.
type CleanupResult struct {
	Kept    []Info
	Removed []Info
	Failed  []CleanupFailure
}

// Manager creates, lists, restores, and prunes backups of one Source.
type Manager struct {
	source Source
	dir    string
	prefix string
	mirror storage.ObjectStore
	now    func() time.Time
	logger *slog.Logger
	remove func(string) error
}

// NewManager constructs a Manager for source.
func NewManager(source Source, cfg Config) (*Manager, error) {
	if source == nil {
		return nil, errors.New("backup source required")
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("backup dir required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		source: source,
		dir:    cfg.Dir,
		prefix: cfg.Prefix,
		mirror: cfg.Mirror,
		now:    cfg.Now,
		logger: cfg.Logger,
		remove: os.Remove,
	}, nil
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// CreateBackup snapshots the source. An empty name generates
// <prefix>_<YYYYMMDD_HHMMSS>.db; a given name gets the .db suffix if missing.
func (m *Manager) CreateBackup(ctx context.Context, name string) (Info, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return m.create(ctx, m.prefix, "")
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return Info{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !strings.HasSuffix(name, Extension) {
		name += Extension
	}
	return m.create(ctx, "", name)
}

func (m *Manager) create(ctx context.Context, prefix, name string) (Info, error) {
	if !m.source.Exists() {
		return Info{}, fmt.Errorf("%w: %s", ErrSourceMissing, m.source.Describe())
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Info{}, fmt.Errorf("create backup dir: %w", err)
	}

	var path string
	if name != "" {
		path = filepath.Join(m.dir, name)
		if _, err := os.Stat(path); err == nil {
			return Info{}, fmt.Errorf("%w: %s", ErrBackupExists, path)
		}
	} else {
		path = m.generatedPath(prefix)
	}

	if err := m.source.Snapshot(path); err != nil {
		_ = os.Remove(path)
		return Info{}, fmt.Errorf("snapshot %s: %w", m.source.Describe(), err)
	}
	info, err := stat(path)
	if err != nil {
		return Info{}, err
	}
	m.logger.Info("backup created", "path", info.Path, "size", info.Size)
	m.upload(ctx, info)
	return info, nil
}

// generatedPath returns a timestamped path not yet taken in the backup dir.
func (m *Manager) generatedPath(prefix string) string {
	base := fmt.Sprintf("%s_%s", prefix, m.now().Format(timestampLayout))
	path := filepath.Join(m.dir, base+Extension)
	for i := 2; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(m.dir, fmt.Sprintf("%s_%d%s", base, i, Extension))
	}
}

func (m *Manager) upload(ctx context.Context, info Info) {
	if m.mirror == nil {
		return
	}
	f, err := os.Open(info.Path)
	if err != nil {
		m.logger.Warn("backup mirror skipped", "path", info.Path, "err", err)
		return
	}
	defer f.Close()
	if err := m.mirror.Put(ctx, info.Name, f, info.Size, contentType); err != nil {
		m.logger.Warn("backup mirror upload failed", "path", info.Path, "err", err)
		return
	}
	m.logger.Info("backup mirrored", "name", info.Name)
}

// ListBackups returns the artifacts in the backup directory, most recently
// modified first. A missing directory yields an empty list.
func (m *Manager) ListBackups() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Info{}, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	backups := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Name:    entry.Name(),
			Path:    filepath.Join(m.dir, entry.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].ModTime.Equal(backups[j].ModTime) {
			return backups[i].ModTime.After(backups[j].ModTime)
		}
		return backups[i].Name > backups[j].Name
	})
	return backups, nil
}

// RestoreBackup replaces the live database with the backup at path. The
// current state is first saved as a before_restore backup when it exists.
func (m *Manager) RestoreBackup(ctx context.Context, path string, opts RestoreOptions) (RestoreResult, error) {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return RestoreResult{}, fmt.Errorf("%w: %s", ErrBackupMissing, path)
	}
	if !opts.Confirmed {
		return RestoreResult{}, ErrCancelled
	}
	if err := Validate(path); err != nil {
		return RestoreResult{}, err
	}

	res := RestoreResult{Restored: path}
	if m.source.Exists() {
		safety, err := m.create(ctx, SafetyPrefix, "")
		switch {
		case err == nil:
			res.SafetyBackup = &safety
		case opts.AllowWithoutSafetyBackup:
			m.logger.Warn("restoring without safety backup", "path", path, "err", err)
			res.SafetyErr = err
		default:
			return RestoreResult{}, fmt.Errorf("%w: %w", ErrSafetyBackupFailed, err)
		}
	}

	if err := m.source.Restore(path); err != nil {
		return res, fmt.Errorf("restore %s into %s: %w", path, m.source.Describe(), err)
	}
	m.logger.Info("backup restored", "path", path, "target", m.source.Describe())
	return res, nil
}

// CleanupOldBackups keeps the keep most recent backups and removes the rest.
// A failed removal is recorded and the remaining removals still run.
func (m *Manager) CleanupOldBackups(ctx context.Context, keep int) (CleanupResult, error) {
	if keep < 0 {
		return CleanupResult{}, fmt.Errorf("%w: %d", ErrInvalidKeepCount, keep)
	}
	backups, err := m.ListBackups()
	if err != nil {
		return CleanupResult{}, err
	}
	if len(backups) <= keep {
		return CleanupResult{Kept: backups}, nil
	}

	res := CleanupResult{Kept: backups[:keep]}
	for _, b := range backups[keep:] {
		if err := m.remove(b.Path); err != nil {
			m.logger.Warn("backup removal failed", "path", b.Path, "err", err)
			res.Failed = append(res.Failed, CleanupFailure{Info: b, Err: err})
			continue
		}
		m.logger.Info("backup removed", "path", b.Path)
		res.Removed = append(res.Removed, b)
		if m.mirror != nil {
			if err := m.mirror.Delete(ctx, b.Name); err != nil {
				m.logger.Warn("backup mirror delete failed", "name", b.Name, "err", err)
			}
		}
	}
	return res, nil
}

func stat(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("stat backup: %w", err)
	}
	return Info{
		Name:    filepath.Base(path),
		Path:    path,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}, nil
}
