// Package bans implements the banned-IP store that gates all traffic.
// Lookups fail open: a broken store must never take the whole site down,
// even if that temporarily lets a banned client through.
package bans

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/inkwell-hq/inkwell/internal/metrics"
	"github.com/inkwell-hq/inkwell/internal/models"
)

// Store errors.
var (
	// ErrAlreadyBanned indicates the address already has a ban row.
	ErrAlreadyBanned = errors.New("bans: ip already banned")
	// ErrNotBanned indicates no ban row exists for the given id.
	ErrNotBanned = errors.New("bans: ban not found")
)

// cacheTTL bounds staleness of cached ban lookups.
const cacheTTL = 30 * time.Second

// Store answers ban membership checks and manages ban rows. An optional
// Redis client caches lookups; cache errors fall through to the database.
type Store struct {
	db    *gorm.DB
	cache *redis.Client
}

// NewStore constructs a Store. cache may be nil to disable caching.
func NewStore(db *gorm.DB, cache *redis.Client) *Store {
	return &Store{db: db, cache: cache}
}

// IsBanned reports whether ip has a ban row. Any lookup failure is resolved
// as "not banned".
func (s *Store) IsBanned(ctx context.Context, ip string) bool {
	if ip == "" {
		return false
	}

	if s.cache != nil {
		if cached, errGet := s.cache.Get(ctx, cacheKey(ip)).Result(); errGet == nil {
			return cached == "1"
		}
	}

	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.BannedIP{}).
		Where("ip_address = ?", ip).
		Count(&count).Error; errCount != nil {
		metrics.BanCheckFailures.Inc()
		log.WithError(errCount).WithField("ip", ip).Warn("ban lookup failed, allowing request")
		return false
	}
	banned := count > 0

	if s.cache != nil {
		value := "0"
		if banned {
			value = "1"
		}
		if errSet := s.cache.Set(ctx, cacheKey(ip), value, cacheTTL).Err(); errSet != nil {
			log.WithError(errSet).Debug("ban cache write failed")
		}
	}
	return banned
}

// Ban creates a ban row for ip. Returns ErrAlreadyBanned on duplicates.
func (s *Store) Ban(ctx context.Context, ip, reason string) (*models.BannedIP, error) {
	var existing models.BannedIP
	errFind := s.db.WithContext(ctx).Where("ip_address = ?", ip).First(&existing).Error
	if errFind == nil {
		return nil, ErrAlreadyBanned
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, errFind
	}

	banned := models.BannedIP{IPAddress: ip, Reason: reason}
	if errCreate := s.db.WithContext(ctx).Create(&banned).Error; errCreate != nil {
		return nil, errCreate
	}
	s.invalidate(ctx, ip)
	return &banned, nil
}

// Unban removes the ban row with the given id. Returns ErrNotBanned when the
// row does not exist.
func (s *Store) Unban(ctx context.Context, id uint64) (*models.BannedIP, error) {
	var banned models.BannedIP
	if errFind := s.db.WithContext(ctx).First(&banned, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotBanned
		}
		return nil, errFind
	}
	if errDelete := s.db.WithContext(ctx).Delete(&models.BannedIP{}, id).Error; errDelete != nil {
		return nil, errDelete
	}
	s.invalidate(ctx, banned.IPAddress)
	return &banned, nil
}

// List returns all ban rows, newest first.
func (s *Store) List(ctx context.Context) ([]models.BannedIP, error) {
	var rows []models.BannedIP
	if errFind := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// invalidate drops the cached lookup for ip, if caching is enabled.
func (s *Store) invalidate(ctx context.Context, ip string) {
	if s.cache == nil {
		return
	}
	if errDel := s.cache.Del(ctx, cacheKey(ip)).Err(); errDel != nil {
		log.WithError(errDel).Debug("ban cache invalidation failed")
	}
}

func cacheKey(ip string) string { return "ban:" + ip }
