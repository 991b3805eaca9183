package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Weak-point reasons.
const (
	ReasonVolumeDrop    = "volume_drop"
	ReasonFrequencyDrop = "frequency_drop"
	ReasonAbsent        = "absent"
)

// WeakPointConfig is the tunable detection policy. Thresholds are
// deliberately configuration, not constants: the right values depend on
// the athlete and the program.
type WeakPointConfig struct {
	// BaselineWeeks is the trailing window the baseline average is
	// computed over, excluding the current week.
	BaselineWeeks int
	// VolumeDropRatio flags an exercise when its current-week value
	// falls below ratio * baseline average.
	VolumeDropRatio float64
	// MinWeeks is how many distinct weeks of the window must contain
	// data before a drop is trusted.
	MinWeeks int
	// FocusAreas lists exercises or session labels that should appear
	// every window; total absence is flagged regardless of volume.
	FocusAreas []string
}

// DefaultWeakPointConfig returns the default detection policy.
func DefaultWeakPointConfig() WeakPointConfig {
	return WeakPointConfig{
		BaselineWeeks:   4,
		VolumeDropRatio: 0.7,
		MinWeeks:        2,
	}
}

// WeakPoint is one under-trained exercise or focus area.
type WeakPoint struct {
	Exercise string  `json:"exercise"`
	Reason   string  `json:"reason"`
	Current  float64 `json:"current"`
	Baseline float64 `json:"baseline"`
}

// exerciseWindow accumulates one exercise's activity over a window.
type exerciseWindow struct {
	volume float64
	days   map[string]bool
	weeks  map[string]bool
}

// WeakPoints compares each exercise's current week against its trailing
// baseline and flags drops in volume or frequency, plus focus areas
// that vanished from the window entirely.
func (e *Engine) WeakPoints(ctx context.Context) ([]WeakPoint, error) {
	cfg := e.cfg
	if cfg.BaselineWeeks <= 0 {
		cfg = DefaultWeakPointConfig()
		cfg.FocusAreas = e.cfg.FocusAreas
	}

	latest, err := e.latestDate(ctx)
	if err != nil {
		return nil, err
	}
	currentStart, err := weekStartDay(latest)
	if err != nil {
		return nil, err
	}
	currentStartDay, _ := parseDay(currentStart)
	baselineStart := currentStartDay.AddDate(0, 0, -7*cfg.BaselineWeeks).Format(dayFormat)
	baselineEnd := currentStartDay.AddDate(0, 0, -1).Format(dayFormat)

	baseline, err := e.exerciseActivity(ctx, baselineStart, baselineEnd)
	if err != nil {
		return nil, err
	}
	current, err := e.exerciseActivity(ctx, currentStart, latest)
	if err != nil {
		return nil, err
	}

	var points []WeakPoint
	names := make([]string, 0, len(baseline))
	for name := range baseline {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		base := baseline[name]
		if len(base.weeks) < cfg.MinWeeks {
			continue
		}

		avgVolume := base.volume / float64(cfg.BaselineWeeks)
		var cur exerciseWindow
		if c, ok := current[name]; ok {
			cur = c
		}

		if avgVolume > 0 && cur.volume < cfg.VolumeDropRatio*avgVolume {
			points = append(points, WeakPoint{
				Exercise: name,
				Reason:   ReasonVolumeDrop,
				Current:  cur.volume,
				Baseline: avgVolume,
			})
			continue
		}

		avgDays := float64(len(base.days)) / float64(cfg.BaselineWeeks)
		if avgDays > 0 && float64(len(cur.days)) < cfg.VolumeDropRatio*avgDays {
			points = append(points, WeakPoint{
				Exercise: name,
				Reason:   ReasonFrequencyDrop,
				Current:  float64(len(cur.days)),
				Baseline: avgDays,
			})
		}
	}

	absent, err := e.absentFocusAreas(ctx, cfg.FocusAreas, baselineStart, latest)
	if err != nil {
		return nil, err
	}
	points = append(points, absent...)

	return points, nil
}

// exerciseActivity aggregates per-exercise volume, training days and
// active weeks within [start, end].
func (e *Engine) exerciseActivity(ctx context.Context, start, end string) (map[string]exerciseWindow, error) {
	rows, err := e.db.db.QueryContext(ctx, `
		SELECT exercise, date,
		       SUM((COALESCE(machine_level, 0) + COALESCE(weight_kg, 0)) * reps) AS vol
		FROM training_history
		WHERE date >= ? AND date <= ?
		  AND reps IS NOT NULL
		  AND (weight_kg IS NOT NULL OR machine_level IS NOT NULL)
		GROUP BY exercise, date`, start, end)
	if err != nil {
		return nil, fmt.Errorf("analytics: activity query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	activity := make(map[string]exerciseWindow)
	for rows.Next() {
		var name, date string
		var vol float64
		if err := rows.Scan(&name, &date, &vol); err != nil {
			return nil, fmt.Errorf("analytics: scan activity row: %w", err)
		}
		week, err := weekStartDay(date)
		if err != nil {
			return nil, err
		}

		w, ok := activity[name]
		if !ok {
			w = exerciseWindow{days: make(map[string]bool), weeks: make(map[string]bool)}
		}
		w.volume += vol
		w.days[date] = true
		w.weeks[week] = true
		activity[name] = w
	}
	return activity, rows.Err()
}

// absentFocusAreas flags configured focus areas with zero matching rows
// in the window. Matching is a case-insensitive substring test against
// both the exercise name and the workout label.
func (e *Engine) absentFocusAreas(ctx context.Context, areas []string, start, end string) ([]WeakPoint, error) {
	var points []WeakPoint
	for _, area := range areas {
		needle := "%" + strings.ToLower(area) + "%"
		var count int
		err := e.db.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM training_history
			WHERE date >= ? AND date <= ?
			  AND (LOWER(exercise) LIKE ? OR LOWER(workout) LIKE ?)`,
			start, end, needle, needle,
		).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("analytics: focus area query: %w", err)
		}
		if count == 0 {
			points = append(points, WeakPoint{Exercise: area, Reason: ReasonAbsent})
		}
	}
	return points, nil
}
