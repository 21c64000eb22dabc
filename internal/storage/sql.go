package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Dialector string

const (
	DialectorSQLite   Dialector = "sqlite"
	DialectorPostgres Dialector = "postgres"
)

// KVEntry is the single table the SQL back end uses.
type KVEntry struct {
	Key       string    `gorm:"column:entry_key;primaryKey;size:255"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

type PoolConfig struct {
	Dialector       Dialector
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        logger.LogLevel
}

func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Dialector:       DialectorPostgres,
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		LogLevel:        logger.Silent,
	}
}

func PoolConfigFromDatabase(db config.DatabaseConfig) *PoolConfig {
	pool := DefaultPoolConfig()
	pool.MaxOpenConns = db.MaxOpenConns
	pool.MaxIdleConns = db.MaxIdleConns
	pool.ConnMaxLifetime = db.ConnMaxLifetime
	pool.ConnMaxIdleTime = db.ConnMaxIdleTime
	return pool
}

func (c *PoolConfig) Validate() error {
	if c.DSN == "" {
		return errors.New("database DSN is required")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return errors.New("connection pool sizes must not be negative")
	}
	if c.ConnMaxLifetime < 0 || c.ConnMaxIdleTime < 0 {
		return errors.New("connection lifetimes must not be negative")
	}
	switch c.Dialector {
	case DialectorSQLite, DialectorPostgres:
	default:
		return fmt.Errorf("unsupported dialector %q", c.Dialector)
	}
	return nil
}

func (c *PoolConfig) dialector() gorm.Dialector {
	if c.Dialector == DialectorSQLite {
		return sqlite.Open(c.DSN)
	}
	return postgres.Open(c.DSN)
}

// SQLStore keeps values in the kv_entries table of a SQLite or PostgreSQL
// database through gorm.
type SQLStore struct {
	db *gorm.DB
}

func OpenSQLStore(config *PoolConfig) (*SQLStore, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := gorm.Open(config.dialector(), &gorm.Config{
		Logger: logger.Default.LogMode(config.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}

	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	return NewSQLStore(db)
}

// NewSQLStore wraps an open gorm handle and migrates the kv_entries table.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var entry KVEntry
	err := s.db.WithContext(ctx).First(&entry, "entry_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	entry := KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Health(ctx context.Context) error {
	if s.db == nil {
		return errors.New("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) Stats() map[string]interface{} {
	if s.db == nil {
		return map[string]interface{}{"error": "database connection is nil"}
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	stats := sqlDB.Stats()
	return map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration.String(),
	}
}

func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
