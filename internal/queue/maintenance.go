package queue

import (
	"context"
	"errors"
	"os"
	"strings"

	"docket/internal/services"
	"docket/internal/submission"
)

// Health summarizes the queue for diagnostics.
type Health struct {
	Dir         string
	Total       int
	ByStatus    map[submission.Status]int
	Unreadable  []string
	LockMarkers int
}

// Health counts queued submissions per status and lists unreadable documents.
func (s *Store) Health(ctx context.Context) (Health, error) {
	health := Health{Dir: s.dir, ByStatus: make(map[submission.Status]int)}
	items, err := s.List(ctx)
	if err != nil && items == nil {
		return health, err
	}
	for _, item := range items {
		health.Total++
		health.ByStatus[item.Status]++
	}
	if err != nil {
		health.Unreadable = unreadableIDs(err)
	}
	if entries, readErr := os.ReadDir(s.coord.Dir()); readErr == nil {
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), ".lock") {
				health.LockMarkers++
			}
		}
	}
	return health, nil
}

func unreadableIDs(err error) []string {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(joined.Unwrap()))
	for _, e := range joined.Unwrap() {
		if errors.Is(e, services.ErrIntegrity) || errors.Is(e, services.ErrStorageUnavailable) {
			out = append(out, e.Error())
		}
	}
	return out
}

// PruneLocks removes lock markers for submissions no longer in the queue.
func (s *Store) PruneLocks(ctx context.Context) (int, error) {
	return s.coord.Prune(func(key string) bool {
		if ctx.Err() != nil {
			return true
		}
		_, err := os.Stat(s.docPath(key))
		return err == nil
	})
}
