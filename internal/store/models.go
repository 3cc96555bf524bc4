package store

import (
	"database/sql"
	"strings"

	"github.com/fitbarca/reminders/internal/domain"
)

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt64(ns sql.NullInt64) *int64 {
	if !ns.Valid {
		return nil
	}
	v := ns.Int64
	return &v
}

// Muscle groups are stored as a comma-joined list; the set is small and the
// store never queries into it.
func joinGroups(groups []domain.MuscleGroup) string {
	if len(groups) == 0 {
		return ""
	}
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = string(g)
	}
	return strings.Join(parts, ",")
}

func splitGroups(s string) []domain.MuscleGroup {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	groups := make([]domain.MuscleGroup, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			groups = append(groups, domain.MuscleGroup(p))
		}
	}
	return groups
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
