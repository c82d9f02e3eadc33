package store

import (
	"context"
	"errors"
	"sort"

	"github.com/raushankrgupta/dreamsoul/models"
)

// DefaultSearchLimit is used when a prefix search asks for no limit.
const DefaultSearchLimit = 10

// firstMatch queries each bucket in BucketOrder and returns the first hit.
// find must return ErrNotFound for a miss; any other error aborts the search.
func firstMatch(ctx context.Context, find func(ctx context.Context, b Bucket) (*models.User, error)) (*Match, error) {
	for _, b := range BucketOrder {
		u, err := find(ctx, b)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &Match{User: u, Bucket: b}, nil
	}
	return nil, ErrNotFound
}

// mergeSummaries flattens per-bucket results, orders them by username and
// keeps the first limit entries.
func mergeSummaries(limit int, lists ...[]models.UserSummary) []models.UserSummary {
	var merged []models.UserSummary
	for _, l := range lists {
		merged = append(merged, l...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Username < merged[j].Username
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	if merged == nil {
		merged = []models.UserSummary{}
	}
	return merged
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return limit
}
