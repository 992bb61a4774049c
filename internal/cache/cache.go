// Package cache persists conversion results keyed by a digest of the
// source text and the recognized options, so batch runs over unchanged
// inputs skip the pipeline entirely. The store is a single-process local
// SQLite database.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oxhq/srcjs"
	"github.com/oxhq/srcjs/sourcemap"
)

// Conversion is one cached run: the input digest, the options that
// produced it, and the emitted output.
type Conversion struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)"`
	Digest    string         `gorm:"type:varchar(64);uniqueIndex"`
	File      string         `gorm:"type:varchar(255)"`
	Options   datatypes.JSON `gorm:"type:jsonb"`
	Output    string         `gorm:"type:text"`
	SourceMap datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	LastHitAt *time.Time
	HitCount  int `gorm:"default:0"`
}

func (Conversion) TableName() string { return "conversions" }

// Store wraps the gorm handle.
type Store struct {
	db *gorm.DB
}

// Open connects to the cache database at dsn, creating the parent
// directory and running migrations. dsn "skip" returns a nil Store, which
// every method treats as a disabled cache.
func Open(dsn string, debug bool) (*Store, error) {
	if dsn == "" || dsn == "skip" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	config := &gorm.Config{}
	if debug {
		config.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := db.AutoMigrate(&Conversion{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return &Store{db: db}, nil
}

// Digest derives the cache key from the source text plus every recognized
// option that affects emission.
func Digest(source string, opts srcjs.Options) string {
	h := sha256.New()
	h.Write([]byte(source))
	if encoded, err := json.Marshal(opts); err == nil {
		h.Write(encoded)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get looks up a prior conversion by digest, bumping the hit counters.
func (s *Store) Get(digest string) (*srcjs.Result, bool) {
	if s == nil {
		return nil, false
	}
	var row Conversion
	if err := s.db.Where("digest = ?", digest).First(&row).Error; err != nil {
		return nil, false
	}

	now := time.Now()
	s.db.Model(&row).Updates(map[string]any{
		"hit_count":   gorm.Expr("hit_count + 1"),
		"last_hit_at": &now,
	})

	result := &srcjs.Result{Text: row.Output}
	if len(row.SourceMap) > 0 {
		var payload sourcemap.Payload
		if err := json.Unmarshal(row.SourceMap, &payload); err == nil {
			result.Map = sourcemap.FromPayload(payload)
		}
	}
	return result, true
}

// Put stores a finished conversion. Conflicting digests (a concurrent
// writer won) are ignored.
func (s *Store) Put(digest, file string, opts srcjs.Options, result *srcjs.Result) error {
	if s == nil {
		return nil
	}
	row := Conversion{
		ID:     uuid.NewString(),
		Digest: digest,
		File:   file,
		Output: result.Text,
	}
	if encoded, err := json.Marshal(opts); err == nil {
		row.Options = datatypes.JSON(encoded)
	}
	if result.Map != nil {
		if encoded, err := json.Marshal(result.Map.Build()); err == nil {
			row.SourceMap = datatypes.JSON(encoded)
		}
	}
	err := s.db.Create(&row).Error
	if err != nil && isUniqueViolation(err) {
		return nil
	}
	return err
}

// Prune drops entries older than maxAge that have never been hit.
func (s *Store) Prune(maxAge time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-maxAge)
	res := s.db.Where("created_at < ? AND hit_count = 0", cutoff).Delete(&Conversion{})
	return res.RowsAffected, res.Error
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed"))
}
