// Package backup uploads encrypted snapshots of the SQLite database to
// S3-compatible storage and restores them.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"

	"github.com/dukerupert/quoteboard/internal/model"
	"github.com/dukerupert/quoteboard/internal/store"
)

var (
	ErrNotConfigured    = errors.New("backup not configured: S3 bucket or credentials missing")
	ErrNoPassphrase     = errors.New("backup passphrase not set")
	ErrBackupNotFound   = errors.New("backup not found")
	ErrBackupIncomplete = errors.New("backup never finished uploading")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

func (c S3Config) enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Manager snapshots the database, seals it and ships it to S3. Each run is
// recorded in the backups table.
type Manager struct {
	cfg     S3Config
	db      *sql.DB
	backups *store.SnapshotStore
	client  s3Client
	logger  *slog.Logger
}

func NewManager(cfg S3Config, db *sql.DB, backups *store.SnapshotStore, logger *slog.Logger) *Manager {
	m := &Manager{cfg: cfg, db: db, backups: backups, logger: logger}
	if cfg.enabled() {
		m.client = newS3Client(cfg)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (m *Manager) Enabled() bool {
	return m.client != nil
}

// Run takes a consistent snapshot with VACUUM INTO, seals it with the
// passphrase and uploads it. It returns the backup record id.
func (m *Manager) Run(ctx context.Context, passphrase string) (int64, error) {
	if m.client == nil {
		return 0, ErrNotConfigured
	}
	if passphrase == "" {
		return 0, ErrNoPassphrase
	}

	filename := fmt.Sprintf("quoteboard-%s.db.enc", time.Now().UTC().Format("2006-01-02T150405Z"))
	key := path.Join(m.cfg.Prefix, filename)

	record, err := m.backups.Create(ctx, filename, key)
	if err != nil {
		return 0, fmt.Errorf("create backup record: %w", err)
	}

	size, err := m.upload(ctx, record.ID, key, passphrase)
	if err != nil {
		if uerr := m.backups.SetState(ctx, record.ID, model.SnapshotFailed, err.Error()); uerr != nil {
			m.logger.Error("record backup failure", "id", record.ID, "error", uerr)
		}
		return 0, err
	}

	if err := m.backups.MarkDone(ctx, record.ID, size); err != nil {
		return 0, err
	}
	m.logger.Info("backup uploaded", "id", record.ID, "key", key, "bytes", size)
	return record.ID, nil
}

func (m *Manager) upload(ctx context.Context, id int64, key, passphrase string) (int64, error) {
	if err := m.backups.SetState(ctx, id, model.SnapshotUploading, ""); err != nil {
		return 0, err
	}

	dir, err := os.MkdirTemp("", "quoteboard-backup-")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	snapshot := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, snapshot); err != nil {
		return 0, fmt.Errorf("snapshot database: %w", err)
	}
	plaintext, err := os.ReadFile(snapshot)
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}

	sealed, err := Seal(plaintext, passphrase)
	if err != nil {
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return 0, fmt.Errorf("upload to s3: %w", err)
	}
	return int64(len(sealed)), nil
}

func (m *Manager) List(ctx context.Context, limit int) ([]model.Snapshot, error) {
	return m.backups.List(ctx, limit)
}

// Restore downloads a backup, decrypts it, checks its integrity and writes
// the database to dstPath. The live database is never touched.
func (m *Manager) Restore(ctx context.Context, backupID int64, passphrase, dstPath string) error {
	if m.client == nil {
		return ErrNotConfigured
	}

	record, err := m.backups.Get(ctx, backupID)
	if err != nil {
		return fmt.Errorf("get backup: %w", err)
	}
	if record == nil {
		return ErrBackupNotFound
	}
	if !record.Restorable() {
		return fmt.Errorf("%w: backup %d is %s", ErrBackupIncomplete, backupID, record.State)
	}

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read download: %w", err)
	}
	plaintext, err := Open(sealed, passphrase)
	if err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	if err := os.WriteFile(dstPath, plaintext, 0600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	if err := checkIntegrity(ctx, dstPath); err != nil {
		os.Remove(dstPath)
		return err
	}
	return nil
}

func checkIntegrity(ctx context.Context, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Cleanup deletes backups older than the retention period, records first.
func (m *Manager) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	if m.client == nil {
		return 0, nil
	}

	keys, err := m.backups.DeleteOlderThan(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("delete old backups: %w", err)
	}
	for _, key := range keys {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete s3 object", "key", key, "error", err)
		}
	}
	return len(keys), nil
}
