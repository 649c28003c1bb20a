// Package catalog persists asset registry snapshots to SQLite.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/leslieo2/go-asset-reload/internal/asset"
)

// ErrNotFound is returned by Get when no entry exists for an id
var ErrNotFound = errors.New("catalog entry not found")

// Entry is one persisted asset record
type Entry struct {
	ID         string `gorm:"primaryKey;type:varchar(255)"`
	Category   string `gorm:"type:varchar(16);index;not null"`
	SourcePath string `gorm:"type:text;not null"`
	ByteSize   int64  `gorm:"not null"`
	IsLoaded   bool   `gorm:"not null"`
	LoadID     string `gorm:"type:varchar(36)"`
	LoadedAt   time.Time
	Pixelated  bool
	MipMaps    bool
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for Entry.
func (Entry) TableName() string {
	return "assets"
}

func entryFrom(a asset.Asset) Entry {
	return Entry{
		ID:         a.ID,
		Category:   a.Category.String(),
		SourcePath: a.SourcePath,
		ByteSize:   a.ByteSize,
		IsLoaded:   a.IsLoaded,
		LoadID:     a.LoadID,
		LoadedAt:   a.LoadedAt,
		Pixelated:  a.Options.Pixelated,
		MipMaps:    a.Options.MipMaps,
	}
}

// Asset converts the entry back to registry metadata
func (e Entry) Asset() (asset.Asset, error) {
	c, err := asset.ParseCategory(e.Category)
	if err != nil {
		return asset.Asset{}, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	return asset.Asset{
		ID:         e.ID,
		Category:   c,
		SourcePath: e.SourcePath,
		ByteSize:   e.ByteSize,
		IsLoaded:   e.IsLoaded,
		LoadID:     e.LoadID,
		LoadedAt:   e.LoadedAt,
		Options:    asset.LoadOptions{Pixelated: e.Pixelated, MipMaps: e.MipMaps},
	}, nil
}

// Catalog wraps a GORM SQLite database holding asset entries
type Catalog struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens or creates the catalog database at path and migrates its schema
func Open(path string, log *zap.Logger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrating catalog schema: %w", err)
	}

	log.Info("Asset catalog opened", zap.String("path", path))
	return &Catalog{db: db, logger: log}, nil
}

// Save upserts every asset by id
func (c *Catalog) Save(ctx context.Context, assets []asset.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	entries := make([]Entry, len(assets))
	for i, a := range assets {
		entries[i] = entryFrom(a)
	}

	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entries).Error
	if err != nil {
		return fmt.Errorf("saving %d catalog entries: %w", len(entries), err)
	}
	c.logger.Debug("Catalog saved", zap.Int("entries", len(entries)))
	return nil
}

// List returns every entry ordered by id
func (c *Catalog) List(ctx context.Context) ([]asset.Asset, error) {
	var entries []Entry
	if err := c.db.WithContext(ctx).Order("id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}

	out := make([]asset.Asset, 0, len(entries))
	for _, e := range entries {
		a, err := e.Asset()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (asset.Asset, error) {
	var e Entry
	err := c.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return asset.Asset{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return asset.Asset{}, fmt.Errorf("reading catalog entry %s: %w", id, err)
	}
	return e.Asset()
}

// Delete removes id; deleting a missing id is not an error
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.db.WithContext(ctx).Delete(&Entry{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting catalog entry %s: %w", id, err)
	}
	return nil
}

func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying DB: %w", err)
	}
	return sqlDB.Close()
}
