package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker serializes work on a key across every process sharing the backend.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// PoolKey names the lock guarding one contract numbering pool.
func PoolKey(year int, prefix string) string {
	return fmt.Sprintf("contracts:pool:%d:%s", year, prefix)
}

// AcquireAll takes every key in sorted order so that concurrent callers asking
// for overlapping sets cannot deadlock. On failure nothing stays held.
func AcquireAll(ctx context.Context, locker Locker, keys []string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	releases := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	seen := make(map[string]struct{}, len(sorted))
	for _, key := range sorted {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		release, err := locker.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
