// Package assets serves event media (flyers, highlight photos, folder links)
// out of the storage tree, with a short-lived cache in front of listing
// calls since the same flyer is requested by every visitor.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jab-consulting/portal/pkg/storage"
)

// ErrFolderNotFound is returned when an event has no asset folder.
var ErrFolderNotFound = errors.New("event folder not found")

const (
	flyerFolder    = "flyer"
	publicFolder   = "public"
	highlightTerm  = "highlight"
	highlightLimit = 4
	cacheTTL       = 5 * time.Minute
)

// DriveAPI is the slice of the storage layer the asset service needs.
type DriveAPI interface {
	FindFolder(ctx context.Context, folderID string) (*storage.Folder, error)
	FindFolderByName(ctx context.Context, name string) (*storage.Folder, error)
	FindSubfolder(ctx context.Context, parentID, name string) (*storage.Folder, error)
	ListImages(ctx context.Context, folderID, nameContains string, limit int) ([]storage.File, error)
	Upload(ctx context.Context, folderID, filename, contentType string, body io.Reader, contentLength int64, publicRead bool) (string, error)
}

// Service looks up and publishes event assets.
type Service struct {
	drive  DriveAPI
	cache  *redis.Client // optional
	logger *zap.Logger
}

// NewService creates the asset service. cache may be nil.
func NewService(drive DriveAPI, cache *redis.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{drive: drive, cache: cache, logger: logger}
}

// EventFolder resolves an event's asset folder, preferring a known folder id
// and falling back to a name lookup. The fallback covers session records
// holding a stale folder id when a correctly named folder exists.
func (s *Service) EventFolder(ctx context.Context, eventID, folderID string) (*storage.Folder, error) {
	if folderID != "" {
		folder, err := s.drive.FindFolder(ctx, folderID)
		if err != nil {
			return nil, err
		}
		if folder != nil {
			return folder, nil
		}
	}
	if eventID != "" {
		folder, err := s.drive.FindFolderByName(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if folder != nil {
			return folder, nil
		}
	}
	return nil, ErrFolderNotFound
}

// Flyer returns the event's flyer image, or nil when none is published.
func (s *Service) Flyer(ctx context.Context, eventID string) (*storage.File, error) {
	var flyer *storage.File
	key := cacheKey("flyer", eventID)
	if s.cacheGet(ctx, key, &flyer) {
		return flyer, nil
	}

	folder, err := s.EventFolder(ctx, eventID, "")
	if err != nil {
		return nil, err
	}
	sub, err := s.drive.FindSubfolder(ctx, folder.ID, flyerFolder)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		// some folders use the plural form
		sub, err = s.drive.FindSubfolder(ctx, folder.ID, flyerFolder+"s")
		if err != nil {
			return nil, err
		}
	}
	if sub == nil {
		return nil, ErrFolderNotFound
	}
	images, err := s.drive.ListImages(ctx, sub.ID, "", 1)
	if err != nil {
		return nil, err
	}
	if len(images) > 0 {
		flyer = &images[0]
	}
	s.cacheSet(ctx, key, flyer)
	return flyer, nil
}

// Highlights returns up to four highlight photos from the event's public
// folder.
func (s *Service) Highlights(ctx context.Context, eventID string) ([]storage.File, error) {
	var files []storage.File
	key := cacheKey("highlights", eventID)
	if s.cacheGet(ctx, key, &files) {
		return files, nil
	}

	folder, err := s.EventFolder(ctx, eventID, "")
	if err != nil {
		return nil, err
	}
	sub, err := s.drive.FindSubfolder(ctx, folder.ID, publicFolder)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrFolderNotFound
	}
	files, err = s.drive.ListImages(ctx, sub.ID, highlightTerm, highlightLimit)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, files)
	return files, nil
}

// UploadImage publishes an image into the event's public folder and drops
// the stale highlights cache entry.
func (s *Service) UploadImage(ctx context.Context, eventID, filename, contentType string, body io.Reader, size int64) (string, error) {
	folder, err := s.EventFolder(ctx, eventID, "")
	if err != nil {
		return "", err
	}
	sub, err := s.drive.FindSubfolder(ctx, folder.ID, publicFolder)
	if err != nil {
		return "", err
	}
	if sub == nil {
		return "", ErrFolderNotFound
	}
	url, err := s.drive.Upload(ctx, sub.ID, filename, contentType, body, size, true)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, cacheKey("highlights", eventID)).Err(); err != nil {
			s.logger.Debug("cache invalidation failed", zap.Error(err))
		}
	}
	return url, nil
}

func cacheKey(kind, eventID string) string {
	return fmt.Sprintf("assets:%s:%s", kind, eventID)
}

func (s *Service) cacheGet(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false
	}
	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
		s.logger.Debug("cache write failed", zap.Error(err))
	}
}
