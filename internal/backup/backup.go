// Package backup writes encrypted snapshots of the SQLite database to the
// S3-compatible bucket used for attachments, and restores them.
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
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/media"
	"github.com/dukerupert/chorechart/internal/metrics"
)

const keyPrefix = "backups/"

// ErrDisabled is returned when the bucket or passphrase is missing.
var ErrDisabled = errors.New("backup not configured")

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds backup settings. Snapshots are taken once a day at or after
// Hour and kept for Retention.
type Config struct {
	S3         media.Config
	Passphrase string
	Hour       int
	Retention  time.Duration
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Snapshot describes one stored backup object.
type Snapshot struct {
	Key       string    `json:"key"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager takes scheduled and on-demand snapshots.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback
	lastRun  calendar.Date

	db     *sql.DB
	client s3Client
	clock  calendar.Clock
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. It is disabled unless the S3 config
// is complete and a passphrase is set.
func NewManager(cfg Config, db *sql.DB, clock calendar.Clock, callback StatusCallback, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		db:       db,
		clock:    clock,
		callback: callback,
		logger:   logger,
		status:   Status{State: StateDisabled},
	}
	if cfg.S3.Complete() && cfg.Passphrase != "" {
		m.client = media.NewS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func (m *Manager) Enabled() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// Start begins the scheduled backup loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.client == nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the backup manager.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Tick takes the day's snapshot once the configured hour has passed, then
// prunes expired snapshots.
func (m *Manager) Tick(ctx context.Context) {
	now := m.clock.Now()
	today := calendar.FromTime(now)

	m.mu.Lock()
	due := m.client != nil && now.Hour() >= m.cfg.Hour && !m.lastRun.Equal(today)
	if due {
		m.lastRun = today
	}
	m.mu.Unlock()
	if !due {
		return
	}

	if _, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	if n, err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	} else if n > 0 {
		m.logger.Info("pruned old backups", "count", n)
	}
}

// RunNow snapshots the database, encrypts it and uploads it. It returns the
// object key.
func (m *Manager) RunNow(ctx context.Context) (string, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()
	if client == nil {
		return "", ErrDisabled
	}

	m.setStatus(Status{State: StateRunning, InProgress: true})
	fail := func(err error) (string, error) {
		metrics.Backups.WithLabelValues("failed").Inc()
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return "", err
	}

	plain, err := m.snapshot(ctx)
	if err != nil {
		return fail(err)
	}
	sealed, err := Seal(plain, passphrase)
	if err != nil {
		return fail(fmt.Errorf("encrypt: %w", err))
	}

	now := m.clock.Now().UTC()
	key := keyPrefix + "chorechart-" + now.Format("20060102T150405Z") + ".db.enc"
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fail(fmt.Errorf("upload to s3: %w", err))
	}

	metrics.Backups.WithLabelValues("ok").Inc()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup uploaded", "key", key, "bytes", len(sealed))
	return key, nil
}

// snapshot returns a consistent copy of the live database.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "chorechart-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// List returns stored snapshots, newest first.
func (m *Manager) List(ctx context.Context) ([]Snapshot, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil, ErrDisabled
	}

	var out []Snapshot
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket), Prefix: aws.String(keyPrefix)}
	for {
		page, err := client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list backups: %w", err)
		}
		for _, obj := range page.Contents {
			out = append(out, Snapshot{
				Key:       aws.ToString(obj.Key),
				SizeBytes: aws.ToInt64(obj.Size),
				CreatedAt: aws.ToTime(obj.LastModified),
			})
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		input.ContinuationToken = page.NextContinuationToken
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Cleanup deletes snapshots older than the retention period and returns
// how many were removed.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	retention := m.cfg.Retention
	m.mu.RUnlock()
	if client == nil || retention <= 0 {
		return 0, nil
	}

	snaps, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := m.clock.Now().Add(-retention)
	removed := 0
	for _, snap := range snaps {
		if !snap.CreatedAt.Before(cutoff) {
			continue
		}
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(snap.Key),
		}); err != nil {
			m.logger.Warn("delete backup object", "key", snap.Key, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Restore downloads the snapshot at key, decrypts and validates it, and
// replaces the database file at dbPath. Nothing may hold dbPath open.
func (m *Manager) Restore(ctx context.Context, key, dbPath string) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()
	if client == nil {
		return ErrDisabled
	}
	if !strings.HasPrefix(key, keyPrefix) {
		return fmt.Errorf("not a backup key: %q", key)
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	plain, err := Open(sealed, passphrase)
	if err != nil {
		return err
	}

	// Stage next to the target so the final rename stays on one filesystem.
	staged := dbPath + ".restore"
	if err := os.WriteFile(staged, plain, 0600); err != nil {
		return fmt.Errorf("write staged database: %w", err)
	}
	defer os.Remove(staged)

	if err := integrityCheck(ctx, staged); err != nil {
		return err
	}

	os.Remove(dbPath + "-wal")
	os.Remove(dbPath + "-shm")
	if err := os.Rename(staged, dbPath); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}

	m.logger.Info("database restored", "key", key, "path", dbPath)
	return nil
}

func integrityCheck(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
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
