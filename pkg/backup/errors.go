package backup

import "errors"

var (
	// ErrSourceMissing is returned when there is no live database to copy.
	ErrSourceMissing = errors.New("database not found")
	// ErrBackupMissing is returned when a restore names a file that does not exist.
	ErrBackupMissing = errors.New("backup not found")
	// ErrCancelled is returned when a confirmation gate was declined.
	ErrCancelled = errors.New("operation cancelled")
	// ErrSafetyBackupFailed aborts a restore whose pre-restore copy could not be taken.
	ErrSafetyBackupFailed = errors.New("safety backup failed")
	ErrInvalidBackup      = errors.New("invalid backup file")
	ErrBackupExists       = errors.New("backup already exists")
	ErrInvalidKeepCount   = errors.New("keep count must not be negative")
	ErrInvalidName        = errors.New("invalid backup name")
)
