package analytics

import (
	"context"
	"database/sql"
	"fmt"
)

// ─── Metric types ────────────────────────────────────────────────────────────

// Metric name constants accepted by Compute.
const (
	MetricVolumeLoad      = "volume_load"
	MetricMachineVolume   = "machine_volume"
	MetricAverageRPE      = "average_rpe"
	MetricMaxWeight       = "max_weight"
	MetricWeeklyFrequency = "weekly_frequency"
)

// validMetrics is the set of metric names Compute understands.
var validMetrics = map[string]bool{
	MetricVolumeLoad:      true,
	MetricMachineVolume:   true,
	MetricAverageRPE:      true,
	MetricMaxWeight:       true,
	MetricWeeklyFrequency: true,
}

// ValidateMetric checks a metric name against the known set.
func ValidateMetric(name string) error {
	if !validMetrics[name] {
		return fmt.Errorf("unknown metric %q (valid: volume_load, machine_volume, average_rpe, max_weight, weekly_frequency)", name)
	}
	return nil
}

// Point is one entry of a metric time series. Series are ordered
// ascending by date with one point per bucket; buckets with no data are
// absent, never zero-filled.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Metric is a named derived value over a date range: either a scalar
// snapshot or a time series, never both.
type Metric struct {
	Name   string   `json:"name"`
	Scalar *float64 `json:"scalar,omitempty"`
	Series []Point  `json:"series,omitempty"`
}

// DateRange bounds a metric query, inclusive on both ends.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AllTime is the widest valid range, used when a caller wants the full
// history.
func AllTime() DateRange {
	return DateRange{Start: "0001-01-01", End: "9999-12-31"}
}

// validate parses both bounds and rejects empty or inverted ranges.
func (r DateRange) validate() error {
	if r.Start == "" || r.End == "" {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	start, err := parseDay(r.Start)
	if err != nil {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	end, err := parseDay(r.End)
	if err != nil {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	if end.Before(start) {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	return nil
}

// InvalidRangeError reports an empty, unparseable or inverted date
// range. It is a caller error, not a pipeline failure.
type InvalidRangeError struct {
	Start string
	End   string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range [%s, %s]", e.Start, e.End)
}

// Overview holds the scalar KPIs for the current training week (the ISO
// week containing the most recent logged date).
type Overview struct {
	LatestDate       string  `json:"latest_date"`
	WeekStart        string  `json:"week_start"`
	WeeklyFrequency  int     `json:"weekly_frequency"`
	VolumeLoadWeek   float64 `json:"total_volume_load_current_week"`
	WeakPointCount   int     `json:"active_weak_points_count"`
	TotalSetsAllTime int     `json:"total_sets_all_time"`
}

// MaxEffort is the machine-aware all-time maximum for one exercise.
// Comparison is lexicographic: machine level first, then weight.
type MaxEffort struct {
	MachineLevel *float64 `json:"machine_level,omitempty"`
	WeightKg     *float64 `json:"weight_kg,omitempty"`
}

// ExerciseStats holds lifetime aggregates for one exercise.
type ExerciseStats struct {
	Exercise    string  `json:"exercise"`
	MaxWeight   float64 `json:"max_weight"`
	MaxLevel    float64 `json:"max_level"`
	AverageRPE  float64 `json:"average_rpe"`
	TotalVolume float64 `json:"total_volume"`
	TotalSets   int     `json:"total_sets"`
}

// Progression compares the first and most recent average working weight
// for one exercise.
type Progression struct {
	Exercise    string  `json:"exercise"`
	StartWeight float64 `json:"start_weight"`
	EndWeight   float64 `json:"end_weight"`
	Diff        float64 `json:"diff"`
}

// WorkoutSummary is a compact per-session rollup.
type WorkoutSummary struct {
	Date    string  `json:"date"`
	Workout string  `json:"workout"`
	Sets    int     `json:"sets"`
	Volume  float64 `json:"volume"`
}

// ProgressionReport bundles the top progressions with recent session
// summaries, the shape the planning stage consumes.
type ProgressionReport struct {
	TopProgressions []Progression    `json:"top_progressions"`
	RecentWorkouts  []WorkoutSummary `json:"recent_workout_summaries"`
}

// ─── Engine ──────────────────────────────────────────────────────────────────

// Engine computes metrics over a training DB snapshot. It never writes;
// the same inputs against the same rows produce the same outputs.
type Engine struct {
	db  *DB
	cfg WeakPointConfig
}

// NewEngine creates an Engine over db with the given weak-point policy.
func NewEngine(db *DB, cfg WeakPointConfig) *Engine {
	return &Engine{db: db, cfg: cfg}
}

// Compute evaluates one named metric over a date range, optionally
// filtered to a single exercise. No matching rows yields an empty
// series, not an error.
func (e *Engine) Compute(ctx context.Context, metric string, r DateRange, exercise string) (Metric, error) {
	if err := ValidateMetric(metric); err != nil {
		return Metric{}, err
	}
	if err := r.validate(); err != nil {
		return Metric{}, err
	}

	switch metric {
	case MetricVolumeLoad:
		series, err := e.dateSeries(ctx, `
			SELECT date, SUM(weight_kg * reps) AS value
			FROM training_history
			WHERE date >= ? AND date <= ?
			  AND weight_kg IS NOT NULL AND reps IS NOT NULL`,
			r, exercise)
		return Metric{Name: metric, Series: series}, err

	case MetricMachineVolume:
		series, err := e.dateSeries(ctx, `
			SELECT date, SUM(machine_level * reps) AS value
			FROM training_history
			WHERE date >= ? AND date <= ?
			  AND machine_level IS NOT NULL AND weight_kg IS NULL AND reps IS NOT NULL`,
			r, exercise)
		return Metric{Name: metric, Series: series}, err

	case MetricAverageRPE:
		series, err := e.dateSeries(ctx, `
			SELECT date, AVG(rpe) AS value
			FROM training_history
			WHERE date >= ? AND date <= ?
			  AND rpe IS NOT NULL`,
			r, exercise)
		return Metric{Name: metric, Series: series}, err

	case MetricMaxWeight:
		// Free weights and machines coalesce into one comparable value.
		series, err := e.dateSeries(ctx, `
			SELECT date, MAX(COALESCE(machine_level, 0) + COALESCE(weight_kg, 0)) AS value
			FROM training_history
			WHERE date >= ? AND date <= ?
			  AND (weight_kg IS NOT NULL OR machine_level IS NOT NULL)`,
			r, exercise)
		return Metric{Name: metric, Series: series}, err

	case MetricWeeklyFrequency:
		series, err := e.weeklyFrequency(ctx, r, exercise)
		return Metric{Name: metric, Series: series}, err
	}

	return Metric{}, fmt.Errorf("unknown metric %q", metric)
}

// dateSeries runs a per-date aggregate query. The base query must
// select (date, value) and contain the two range placeholders; the
// exercise filter and GROUP BY are appended here.
func (e *Engine) dateSeries(ctx context.Context, base string, r DateRange, exercise string) ([]Point, error) {
	query := base
	args := []any{r.Start, r.End}
	if exercise != "" {
		query += " AND exercise = ?"
		args = append(args, exercise)
	}
	query += " GROUP BY date ORDER BY date"

	rows, err := e.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("analytics: metric query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var series []Point
	for rows.Next() {
		var p Point
		var value sql.NullFloat64
		if err := rows.Scan(&p.Date, &value); err != nil {
			return nil, fmt.Errorf("analytics: scan point: %w", err)
		}
		if !value.Valid {
			continue
		}
		p.Value = value.Float64
		series = append(series, p)
	}
	return series, rows.Err()
}

// weeklyFrequency counts distinct training days per ISO week. Bucketing
// happens in Go so the bucket label is always the ISO week's Monday.
func (e *Engine) weeklyFrequency(ctx context.Context, r DateRange, exercise string) ([]Point, error) {
	query := `SELECT DISTINCT date FROM training_history WHERE date >= ? AND date <= ?`
	args := []any{r.Start, r.End}
	if exercise != "" {
		query += " AND exercise = ?"
		args = append(args, exercise)
	}
	query += " ORDER BY date"

	rows, err := e.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("analytics: frequency query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	var order []string
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("analytics: scan date: %w", err)
		}
		week, err := weekStartDay(date)
		if err != nil {
			return nil, err
		}
		if _, seen := counts[week]; !seen {
			order = append(order, week)
		}
		counts[week]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	series := make([]Point, 0, len(order))
	for _, week := range order {
		series = append(series, Point{Date: week, Value: float64(counts[week])})
	}
	return series, nil
}

// MaxEffortFor returns the all-time maximum for an exercise, preferring
// the (machine level, weight) lexicographic pair for machine work.
// Both fields nil means the exercise was never logged with a load.
func (e *Engine) MaxEffortFor(ctx context.Context, exercise string) (MaxEffort, error) {
	var level, weight sql.NullFloat64
	err := e.db.db.QueryRowContext(ctx, `
		SELECT MAX(machine_level), MAX(weight_kg)
		FROM training_history
		WHERE exercise = ?`, exercise,
	).Scan(&level, &weight)
	if err != nil {
		return MaxEffort{}, fmt.Errorf("analytics: max effort: %w", err)
	}

	var effort MaxEffort
	if level.Valid {
		effort.MachineLevel = &level.Float64
	}
	if weight.Valid {
		effort.WeightKg = &weight.Float64
	}
	return effort, nil
}

// OverviewMetrics computes the current-week KPIs. The current week is
// the ISO week of the most recent logged date; an empty history falls
// back to today's week with zero values.
func (e *Engine) OverviewMetrics(ctx context.Context) (Overview, error) {
	latest, err := e.latestDate(ctx)
	if err != nil {
		return Overview{}, err
	}
	start, err := weekStartDay(latest)
	if err != nil {
		return Overview{}, err
	}

	var o Overview
	o.LatestDate = latest
	o.WeekStart = start

	err = e.db.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT date) FROM training_history
		WHERE date >= ? AND date <= ?`, start, latest,
	).Scan(&o.WeeklyFrequency)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics: weekly frequency: %w", err)
	}

	var vol sql.NullFloat64
	err = e.db.db.QueryRowContext(ctx, `
		SELECT SUM(weight_kg * reps) FROM training_history
		WHERE date >= ? AND date <= ?
		  AND weight_kg IS NOT NULL AND reps IS NOT NULL`, start, latest,
	).Scan(&vol)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics: weekly volume: %w", err)
	}
	if vol.Valid {
		o.VolumeLoadWeek = vol.Float64
	}

	// Sessions explicitly labelled as weak-point work count as active.
	err = e.db.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM training_history
		WHERE date >= ? AND date <= ? AND workout LIKE '%weak point%'`, start, latest,
	).Scan(&o.WeakPointCount)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics: weak point count: %w", err)
	}

	err = e.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_history`).Scan(&o.TotalSetsAllTime)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics: total sets: %w", err)
	}

	return o, nil
}

// latestDate returns the most recent logged date, or today (UTC) when
// the history is empty.
func (e *Engine) latestDate(ctx context.Context) (string, error) {
	var latest sql.NullString
	err := e.db.db.QueryRowContext(ctx, `SELECT MAX(date) FROM training_history`).Scan(&latest)
	if err != nil {
		return "", fmt.Errorf("analytics: latest date: %w", err)
	}
	if latest.Valid {
		return latest.String, nil
	}
	return timeNow().UTC().Format(dayFormat), nil
}

// ExerciseStatsFor computes lifetime aggregates for one exercise.
// An exercise with no logged rows returns zero values, not an error.
func (e *Engine) ExerciseStatsFor(ctx context.Context, exercise string) (ExerciseStats, error) {
	stats := ExerciseStats{Exercise: exercise}

	var maxWeight, maxLevel, avgRPE, totalVolume sql.NullFloat64
	var totalSets int
	err := e.db.db.QueryRowContext(ctx, `
		SELECT
			MAX(weight_kg),
			MAX(machine_level),
			AVG(rpe),
			SUM((COALESCE(machine_level, 0) + COALESCE(weight_kg, 0)) * reps),
			COUNT(*)
		FROM training_history
		WHERE exercise = ?`, exercise,
	).Scan(&maxWeight, &maxLevel, &avgRPE, &totalVolume, &totalSets)
	if err != nil {
		return ExerciseStats{}, fmt.Errorf("analytics: exercise stats: %w", err)
	}

	if maxWeight.Valid {
		stats.MaxWeight = maxWeight.Float64
	}
	if maxLevel.Valid {
		stats.MaxLevel = maxLevel.Float64
	}
	if avgRPE.Valid {
		stats.AverageRPE = avgRPE.Float64
	}
	if totalVolume.Valid {
		stats.TotalVolume = totalVolume.Float64
	}
	stats.TotalSets = totalSets
	return stats, nil
}

// Exercises returns the sorted distinct exercise names on record.
func (e *Engine) Exercises(ctx context.Context) ([]string, error) {
	rows, err := e.db.db.QueryContext(ctx, `
		SELECT DISTINCT exercise FROM training_history
		WHERE exercise != '' ORDER BY exercise`)
	if err != nil {
		return nil, fmt.Errorf("analytics: exercises: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("analytics: scan exercise: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// RecentHistory returns the most recent logged sets, newest date first,
// ties in canonical (workout, exercise, set_number) order.
func (e *Engine) RecentHistory(ctx context.Context, limit int) ([]Set, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := e.db.db.QueryContext(ctx, `
		SELECT row_id, date, workout, exercise, set_number, reps, duration_seconds,
		       weight_kg, machine_level, warm_up, rpe, notes
		FROM training_history
		ORDER BY date DESC, workout, exercise, set_number
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("analytics: recent history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sets []Set
	for rows.Next() {
		s, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

func scanSet(rows *sql.Rows) (Set, error) {
	var s Set
	var reps, duration sql.NullInt64
	var weight, level, rpe sql.NullFloat64
	var warmUp, notes sql.NullString

	err := rows.Scan(&s.RowID, &s.Date, &s.Workout, &s.Exercise, &s.SetNumber,
		&reps, &duration, &weight, &level, &warmUp, &rpe, &notes)
	if err != nil {
		return Set{}, fmt.Errorf("analytics: scan set: %w", err)
	}

	if reps.Valid {
		v := int(reps.Int64)
		s.Reps = &v
	}
	if duration.Valid {
		v := int(duration.Int64)
		s.DurationSeconds = &v
	}
	if weight.Valid {
		s.WeightKg = &weight.Float64
	}
	if level.Valid {
		s.MachineLevel = &level.Float64
	}
	if warmUp.Valid {
		s.WarmUp = &warmUp.String
	}
	if rpe.Valid {
		s.RPE = &rpe.Float64
	}
	if notes.Valid {
		s.Notes = &notes.String
	}
	return s, nil
}

// ProgressionAnalysis compares first-vs-latest average working weight
// per exercise and summarizes the last few sessions.
func (e *Engine) ProgressionAnalysis(ctx context.Context) (ProgressionReport, error) {
	var report ProgressionReport

	rows, err := e.db.db.QueryContext(ctx, `
		WITH exercise_bounds AS (
			SELECT exercise, MIN(date) AS first_date, MAX(date) AS last_date
			FROM training_history
			WHERE weight_kg IS NOT NULL
			GROUP BY exercise
		),
		first_weights AS (
			SELECT t.exercise, AVG(t.weight_kg) AS start_weight
			FROM training_history t
			JOIN exercise_bounds e ON t.exercise = e.exercise AND t.date = e.first_date
			GROUP BY t.exercise
		),
		last_weights AS (
			SELECT t.exercise, AVG(t.weight_kg) AS end_weight
			FROM training_history t
			JOIN exercise_bounds e ON t.exercise = e.exercise AND t.date = e.last_date
			GROUP BY t.exercise
		)
		SELECT f.exercise, f.start_weight, l.end_weight,
		       l.end_weight - f.start_weight AS diff
		FROM first_weights f
		JOIN last_weights l ON f.exercise = l.exercise
		WHERE diff != 0
		ORDER BY diff DESC
		LIMIT 5`)
	if err != nil {
		return report, fmt.Errorf("analytics: progression query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var p Progression
		if err := rows.Scan(&p.Exercise, &p.StartWeight, &p.EndWeight, &p.Diff); err != nil {
			return report, fmt.Errorf("analytics: scan progression: %w", err)
		}
		report.TopProgressions = append(report.TopProgressions, p)
	}
	if err := rows.Err(); err != nil {
		return report, err
	}

	summaries, err := e.db.db.QueryContext(ctx, `
		SELECT date, workout, COUNT(*) AS sets, COALESCE(SUM(weight_kg * reps), 0) AS volume
		FROM training_history
		GROUP BY date, workout
		ORDER BY date DESC
		LIMIT 5`)
	if err != nil {
		return report, fmt.Errorf("analytics: workout summaries: %w", err)
	}
	defer func() { _ = summaries.Close() }()

	for summaries.Next() {
		var w WorkoutSummary
		if err := summaries.Scan(&w.Date, &w.Workout, &w.Sets, &w.Volume); err != nil {
			return report, fmt.Errorf("analytics: scan summary: %w", err)
		}
		report.RecentWorkouts = append(report.RecentWorkouts, w)
	}
	return report, summaries.Err()
}
