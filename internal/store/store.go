// Package store persists service passwords in a local SQLite database.
// each service has at most one record; records are never updated in place.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"sort"
	"time"

	"github.com/zarlcorp/zpass/internal/credential"
	"github.com/zarlcorp/zpass/internal/seal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	metaSalt   = "salt"
	metaVerify = "verify"

	// fixed-width UTC layout so text order matches time order
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var (
	// ErrDuplicateService is returned when saving a service that already exists.
	ErrDuplicateService = errors.New("service already exists")

	// ErrUnavailable is returned when the database cannot be opened or initialized.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotFound is returned when a service has no record.
	ErrNotFound = errors.New("service not found")

	// ErrLocked is returned when a sealed store is opened without a passphrase.
	ErrLocked = errors.New("store is encrypted: passphrase required")

	// ErrPlaintextRecords is returned when sealing is requested for a store
	// that already holds plaintext records.
	ErrPlaintextRecords = errors.New("store already holds plaintext records")
)

// Option configures a Store.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	now        func() time.Time
	passphrase []byte
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPassphrase enables sealing of the password column.
func WithPassphrase(pass []byte) Option {
	return func(o *options) { o.passphrase = pass }
}

// Store manages the passwords table.
type Store struct {
	db     *sql.DB
	path   string
	log    *slog.Logger
	now    func() time.Time
	sealer seal.Sealer
	cipher *seal.Cipher
}

// Open opens or creates the database at path and initializes its schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	dsn, err := dsnFor(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w: %w", ErrUnavailable, err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w: %w", ErrUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: %w: ping %s: %w", ErrUnavailable, path, err)
	}

	s := &Store{
		db:     db,
		path:   path,
		log:    o.logger,
		now:    o.now,
		sealer: seal.Plain{},
	}

	if err := s.Initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := s.unlock(ctx, o.passphrase); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	s.log.Debug("store opened", "path", path, "sealed", s.cipher != nil)
	return s, nil
}

// Initialize ensures the schema exists. it never drops data and is safe
// to call any number of times.
func (s *Store) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := runMigrations(s.db); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Sealed reports whether passwords are encrypted at rest.
func (s *Store) Sealed() bool {
	return s.cipher != nil
}

// Save inserts a record for service. the insert is atomic: on any error
// nothing is written.
func (s *Store) Save(ctx context.Context, service, password string) (credential.Record, error) {
	if err := credential.Validate(service, password); err != nil {
		return credential.Record{}, fmt.Errorf("save password: %w", err)
	}

	stored, err := s.sealer.Seal(password)
	if err != nil {
		return credential.Record{}, fmt.Errorf("save password %q: %w", service, err)
	}

	createdAt := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return credential.Record{}, fmt.Errorf("save password %q: begin: %w", service, err)
	}
	defer s.rollback(tx)

	const query = `INSERT INTO passwords (service, password, created_at) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, query, service, stored, createdAt.Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return credential.Record{}, fmt.Errorf("save password %q: %w", service, ErrDuplicateService)
		}
		return credential.Record{}, fmt.Errorf("save password %q: %w", service, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return credential.Record{}, fmt.Errorf("save password %q: last insert id: %w", service, err)
	}

	if err := tx.Commit(); err != nil {
		return credential.Record{}, fmt.Errorf("save password %q: commit: %w", service, err)
	}

	s.log.Debug("password saved", "service", service, "id", id)

	return credential.Record{
		ID:        id,
		Service:   service,
		Password:  password,
		CreatedAt: createdAt,
	}, nil
}

// List returns every record ordered by created_at ascending, then id.
func (s *Store) List(ctx context.Context) ([]credential.Record, error) {
	const query = `SELECT id, service, password, created_at FROM passwords ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list passwords: %w", err)
	}
	defer rows.Close()

	var recs []credential.Record
	for rows.Next() {
		rec, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("list passwords: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list passwords: iterate: %w", err)
	}

	// rows written by other tools may use a different timestamp text form
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})

	return recs, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passwords`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count passwords: %w", err)
	}
	return n, nil
}

// Get returns the record for service.
func (s *Store) Get(ctx context.Context, service string) (credential.Record, error) {
	const query = `SELECT id, service, password, created_at FROM passwords WHERE service = ?`
	rec, err := s.scan(s.db.QueryRowContext(ctx, query, service))
	if errors.Is(err, sql.ErrNoRows) {
		return credential.Record{}, fmt.Errorf("get password %q: %w", service, ErrNotFound)
	}
	if err != nil {
		return credential.Record{}, fmt.Errorf("get password %q: %w", service, err)
	}
	return rec, nil
}

// Delete removes the record for service.
func (s *Store) Delete(ctx context.Context, service string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM passwords WHERE service = ?`, service)
	if err != nil {
		return fmt.Errorf("delete password %q: %w", service, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete password %q: rows affected: %w", service, err)
	}
	if n == 0 {
		return fmt.Errorf("delete password %q: %w", service, ErrNotFound)
	}

	s.log.Debug("password deleted", "service", service)
	return nil
}

// Close releases the database handle and erases any sealing key.
func (s *Store) Close() error {
	if s.cipher != nil {
		s.cipher.Close()
		s.cipher = nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scan(row scanner) (credential.Record, error) {
	var (
		rec       credential.Record
		stored    string
		createdAt string
	)
	if err := row.Scan(&rec.ID, &rec.Service, &stored, &createdAt); err != nil {
		return credential.Record{}, err
	}

	pw, err := s.sealer.Open(stored)
	if err != nil {
		return credential.Record{}, fmt.Errorf("unseal %q: %w", rec.Service, err)
	}
	rec.Password = pw

	rec.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return credential.Record{}, fmt.Errorf("parse created_at for %q: %w", rec.Service, err)
	}

	return rec, nil
}

// unlock configures sealing. without a passphrase the store must not be
// sealed; with one it either verifies the existing token or seals a store
// that holds no records yet.
func (s *Store) unlock(ctx context.Context, passphrase []byte) error {
	token, hasToken, err := s.meta(ctx, metaVerify)
	if err != nil {
		return err
	}

	if len(passphrase) == 0 {
		if hasToken {
			return ErrLocked
		}
		return nil
	}

	if hasToken {
		salt, ok, err := s.meta(ctx, metaSalt)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("sealed store has no salt")
		}
		c, err := seal.NewCipher(passphrase, salt)
		if err != nil {
			return err
		}
		if err := c.Verify(token); err != nil {
			c.Close()
			return err
		}
		s.cipher, s.sealer = c, c
		return nil
	}

	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrPlaintextRecords
	}

	return s.initSeal(ctx, passphrase)
}

func (s *Store) initSeal(ctx context.Context, passphrase []byte) error {
	salt, err := seal.NewSalt()
	if err != nil {
		return err
	}
	c, err := seal.NewCipher(passphrase, salt)
	if err != nil {
		return err
	}
	token, err := c.Token()
	if err != nil {
		c.Close()
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		c.Close()
		return fmt.Errorf("init seal: begin: %w", err)
	}
	defer s.rollback(tx)

	const query = `INSERT INTO meta (key, value) VALUES (?, ?)`
	for _, kv := range []struct {
		key   string
		value []byte
	}{
		{metaSalt, salt},
		{metaVerify, token},
	} {
		if _, err := tx.ExecContext(ctx, query, kv.key, kv.value); err != nil {
			c.Close()
			return fmt.Errorf("init seal: write %s: %w", kv.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		c.Close()
		return fmt.Errorf("init seal: commit: %w", err)
	}

	s.log.Debug("store sealed", "path", s.path)
	s.cipher, s.sealer = c, c
	return nil
}

func (s *Store) meta(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read meta %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.log.Warn("rollback failed", "err", err)
	}
}

// dsnFor builds a file URI for path. the path is escaped so '?', '#' and
// '%' in a file name reach sqlite literally.
func dsnFor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
	}
	return u.String(), nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// parseTime accepts the store's own layout plus the text forms other
// sqlite clients commonly write. forms without a zone were written in
// local time.
func parseTime(s string) (time.Time, error) {
	zoned := []string{
		timeLayout,
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
	}
	for _, format := range zoned {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	naive := []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		time.DateTime,
	}
	for _, format := range naive {
		if t, err := time.ParseInLocation(format, s, time.Local); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
