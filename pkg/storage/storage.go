// Package storage persists JSON values under string keys. Keys of this
// application share the "pdf-insights-" prefix; per-document keys end with
// the document name.
package storage

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by Delete for unknown keys
var ErrNotFound = errors.New("key not found")

// Key prefixes
const (
	Prefix      = "pdf-insights-"
	ConfigKey   = Prefix + "config"
	commentsKey = Prefix + "comments"
	imagesKey   = Prefix + "images"
	analysesKey = Prefix + "analyses"
)

// DefaultQuota is the storage size usage is measured against
const DefaultQuota = 5 * 1024 * 1024

// Entry describes a stored value
type Entry struct {
	Key     string
	Size    int64
	Updated time.Time
}

// Store is a key-value store of JSON documents
type Store interface {
	// Save stores v encoded as JSON
	Save(key string, v any) error
	// Load decodes the value of key into v. It reports false when the key
	// does not exist.
	Load(key string, v any) (bool, error)
	Delete(key string) error
	Entries() ([]Entry, error)
}

// CommentsKey returns the key of the comment list of doc
func CommentsKey(doc string) string { return commentsKey + "-" + doc }

// ImagesKey returns the key of the page objects cache of doc
func ImagesKey(doc string) string { return imagesKey + "-" + doc }

// AnalysesKey returns the key of the image analyses of doc
func AnalysesKey(doc string) string { return analysesKey + "-" + doc }

// Prune deletes all but the keep most recently updated image caches. It
// returns the deleted keys.
func Prune(s Store, keep int) ([]string, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}

	var images []Entry
	for _, e := range entries {
		if strings.HasPrefix(e.Key, imagesKey+"-") {
			images = append(images, e)
		}
	}
	if len(images) <= keep {
		return nil, nil
	}

	// Oldest first
	sort.SliceStable(images, func(i, j int) bool {
		if images[i].Updated.Equal(images[j].Updated) {
			return images[i].Key < images[j].Key
		}
		return images[i].Updated.Before(images[j].Updated)
	})

	var removed []string
	for _, e := range images[:len(images)-keep] {
		if err := s.Delete(e.Key); err != nil && !errors.Is(err, ErrNotFound) {
			return removed, err
		}
		removed = append(removed, e.Key)
	}
	return removed, nil
}

// Usage reports how much of the quota the application keys take
type Usage struct {
	Used       int64   `json:"used"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// UsageOf sums key and value sizes of all application keys
func UsageOf(s Store, quota int64) (Usage, error) {
	entries, err := s.Entries()
	if err != nil {
		return Usage{}, err
	}
	u := Usage{Total: quota}
	for _, e := range entries {
		if !strings.HasPrefix(e.Key, Prefix) {
			continue
		}
		u.Used += e.Size + int64(len(e.Key))
	}
	if quota > 0 {
		u.Percentage = float64(u.Used) / float64(quota) * 100
	}
	return u, nil
}

// ClearAll deletes every application key and returns how many were removed
func ClearAll(s Store) (int, error) {
	entries, err := s.Entries()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.Key, Prefix) {
			continue
		}
		if err := s.Delete(e.Key); err != nil && !errors.Is(err, ErrNotFound) {
			return n, err
		}
		n++
	}
	return n, nil
}
