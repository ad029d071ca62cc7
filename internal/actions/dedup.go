package actions

import (
	"sort"
	"strings"

	"github.com/fleetops/fleet-analytics-core/internal/domain/action"
)

// dedupKey is the triple spec.md §4.7 merges on.
type dedupKey struct {
	truckID   string
	category  string
	component string
}

// Dedup merges items sharing (truck_id, category, normalized_component),
// keeping the highest-PriorityScore item's classification fields but
// unioning sources, capping merged action steps, and taking the max
// priority score across the group. Input items are assumed already
// Finalize-d (normalized, scored). The result is sorted by PriorityScore
// descending.
func Dedup(items []action.Item) []action.Item {
	groups := make(map[dedupKey][]action.Item)
	var order []dedupKey
	for _, item := range items {
		key := dedupKey{truckID: item.TruckID, category: item.Category, component: item.NormalizedComponent}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], item)
	}

	merged := make([]action.Item, 0, len(order))
	for _, key := range order {
		merged = append(merged, mergeGroup(groups[key]))
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PriorityScore > merged[j].PriorityScore
	})
	return merged
}

// mergeGroup collapses one dedup group into a single item. The primary
// item — the one whose Title/Description/ActionType/Icon/Category survive —
// is whichever group member has the highest PriorityScore, since that score
// is what the group's merged priority_score is set to. CurrentValue/Trend/
// Threshold are measurement fields rather than classification fields, so
// each is independently taken from whichever group member carries the
// highest source weight for it; a highly-trusted source's measurement
// shouldn't be discarded just because a different source produced the
// higher-priority finding. The group is assumed non-empty.
func mergeGroup(group []action.Item) action.Item {
	if len(group) == 1 {
		return group[0]
	}

	primary := group[0]
	var minDays *float64
	for _, item := range group {
		if item.PriorityScore > primary.PriorityScore {
			primary = item
		}
		if item.DaysToCritical != nil && (minDays == nil || *item.DaysToCritical < *minDays) {
			minDays = item.DaysToCritical
		}
	}
	primary.DaysToCritical = minDays

	valueWeight, trendWeight, thresholdWeight := -1, -1, -1
	for _, item := range group {
		w := sourceWeight(item)
		if item.CurrentValue != nil && w > valueWeight {
			primary.CurrentValue = item.CurrentValue
			valueWeight = w
		}
		if item.Trend != "" && w > trendWeight {
			primary.Trend = item.Trend
			trendWeight = w
		}
		if item.Threshold != nil && w > thresholdWeight {
			primary.Threshold = item.Threshold
			thresholdWeight = w
		}
	}

	sourceSet := make(map[string]bool)
	var steps []string
	stepSet := make(map[string]bool)
	for _, item := range group {
		for _, s := range item.Sources {
			sourceSet[s] = true
		}
		for _, s := range item.ActionSteps {
			if !stepSet[s] {
				stepSet[s] = true
				steps = append(steps, s)
			}
		}
	}

	sources := make([]string, 0, len(sourceSet))
	for s := range sourceSet {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	primary.Sources = sources

	if len(steps) > maxActionSteps {
		steps = steps[:maxActionSteps]
	}
	primary.ActionSteps = steps

	if len(group) > 1 {
		primary.Description = mergedDescription(primary.Description, len(group))
	}
	return primary
}

func sourceWeight(item action.Item) int {
	max := 0
	for _, s := range item.Sources {
		if w, ok := action.SourceWeight[action.Source(s)]; ok && w > max {
			max = w
		}
	}
	return max
}

func mergedDescription(base string, count int) string {
	base = strings.TrimSpace(base)
	suffix := "(corroborated by multiple detectors)"
	if strings.HasSuffix(base, suffix) {
		return base
	}
	if base == "" {
		return suffix
	}
	return base + " " + suffix
}
