package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/claimhub/ClaimHub/internal/source"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Claim is the persisted form of a normalized claim. Rows are never updated:
// the URL is the identity key and collisions are skipped at insert time.
type Claim struct {
	ID          string         `gorm:"primaryKey;size:40" json:"id"`
	Title       string         `gorm:"size:512" json:"title"`
	Summary     string         `gorm:"size:600" json:"summary"`
	URL         string         `gorm:"size:1024;uniqueIndex" json:"url"`
	Source      string         `gorm:"size:128;index" json:"source"`
	Verdict     string         `gorm:"size:32;index" json:"verdict"`
	PublishedAt time.Time      `gorm:"index" json:"publishedAt"`
	Language    string         `gorm:"size:16;index" json:"language"`
	Category    string         `gorm:"size:64;index" json:"category"`
	Tags        datatypes.JSON `gorm:"type:jsonb" json:"tags"`

	CreatedAt time.Time `json:"createdAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Claim{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// ExistsByURL is the dedup check every source runs before inserting.
func (s *Store) ExistsByURL(url string) (bool, error) {
	var count int64
	if err := s.DB.Model(&Claim{}).Where("url = ?", url).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Insert stores one normalized claim. The unique index on url is the
// backstop for the exists-then-insert sequence: a concurrent duplicate is
// silently ignored, never updated.
func (s *Store) Insert(c source.Claim) error {
	if c.URL == "" {
		return fmt.Errorf("storage: claim without url")
	}

	tags, err := json.Marshal(c.Tags)
	if err != nil {
		tags = []byte("[]")
	}

	row := &Claim{
		ID:          hashURL(c.URL),
		Title:       truncateRunesDB(toValidUTF8(c.Title), 512),
		Summary:     truncateRunesDB(toValidUTF8(c.Summary), 600),
		URL:         c.URL,
		Source:      c.Source,
		Verdict:     string(c.Verdict),
		PublishedAt: c.PublishedAt,
		Language:    c.Language,
		Category:    c.Category,
		Tags:        datatypes.JSON(tags),
	}

	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
}

// ClaimFilter narrows the listing endpoint; zero values (or "all") mean any.
type ClaimFilter struct {
	Language string
	Category string
	Verdict  string
	Search   string
	From     time.Time
	To       time.Time
	Limit    int
}

// ListClaims returns stored claims newest-first, with a short-lived Redis
// cache in front of the database.
func (s *Store) ListClaims(f ClaimFilter) ([]Claim, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("claims:list:%s:%s:%s:%s:%d:%d:%d",
		f.Language, f.Category, f.Verdict, f.Search, f.From.Unix(), f.To.Unix(), f.Limit)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Claim
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	db := s.DB.Model(&Claim{}).Order("published_at DESC")
	if f.Language != "" && f.Language != "all" {
		db = db.Where("language = ?", f.Language)
	}
	if f.Category != "" && f.Category != "all" {
		db = db.Where("category = ?", f.Category)
	}
	if f.Verdict != "" && f.Verdict != "all" {
		db = db.Where("verdict = ?", f.Verdict)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		db = db.Where("title ILIKE ? OR summary ILIKE ?", pattern, pattern)
	}
	if !f.From.IsZero() {
		db = db.Where("published_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		db = db.Where("published_at <= ?", f.To)
	}

	var list []Claim
	if err := db.Limit(f.Limit).Find(&list).Error; err != nil {
		return nil, err
	}

	const listCacheTTL = 5 * time.Minute
	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

// toValidUTF8 normalizes strings to legal UTF-8 before they hit Postgres.
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB caps a string by rune count so it cannot overflow the
// column's varchar limit even when the upstream cap was byte-based.
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
