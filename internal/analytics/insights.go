package analytics

import (
	"context"
	"fmt"
)

// Heuristic thresholds for insight detection. Unlike the weak-point
// policy these are fixed detection rules, not tunables.
const (
	stagnationSessions  = 3
	progressWindowDays  = 30
	progressFactor      = 1.05
	fatigueWindowDays   = 7
	fatigueRPEThreshold = 9.0

	insightCap         = 5
	insightCapFiltered = 3
)

// Insight categories.
const (
	InsightIntegrity  = "integrity"
	InsightStagnation = "stagnation"
	InsightProgress   = "progress"
	InsightFatigue    = "fatigue"
)

// Insight is one deterministic observation derived from the history.
// Severity uses the finding scale: info, warning or critical.
type Insight struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Exercise string `json:"exercise,omitempty"`
	Message  string `json:"message"`
}

// Insights runs the heuristic detection pass over the history:
// chronology integrity, stagnation, recent progress and high-RPE
// fatigue. Results are capped (3 when exercise-filtered, 5 otherwise)
// to keep downstream reasoning tractable.
func (e *Engine) Insights(ctx context.Context, exercise string) ([]Insight, error) {
	var insights []Insight

	integrity, err := e.integrityInsights(ctx)
	if err != nil {
		return nil, err
	}
	insights = append(insights, integrity...)

	stagnated, err := e.stagnationInsights(ctx, exercise)
	if err != nil {
		return nil, err
	}
	insights = append(insights, stagnated...)

	progressed, err := e.progressInsights(ctx, exercise)
	if err != nil {
		return nil, err
	}
	insights = append(insights, progressed...)

	fatigued, err := e.fatigueInsights(ctx, exercise)
	if err != nil {
		return nil, err
	}
	insights = append(insights, fatigued...)

	limit := insightCap
	if exercise != "" {
		limit = insightCapFiltered
	}
	if len(insights) > limit {
		insights = insights[:limit]
	}
	return insights, nil
}

// integrityInsights flags log entries whose year runs backwards
// relative to row order, a sign of a data-entry mistake.
func (e *Engine) integrityInsights(ctx context.Context) ([]Insight, error) {
	rows, err := e.db.db.QueryContext(ctx, `
		WITH ordered_history AS (
			SELECT date, row_id,
			       LAG(date) OVER (ORDER BY row_id) AS prev_date
			FROM training_history
		)
		SELECT DISTINCT date, prev_date
		FROM ordered_history
		WHERE date IS NOT NULL AND prev_date IS NOT NULL
		  AND CAST(strftime('%Y', date) AS INTEGER) < CAST(strftime('%Y', prev_date) AS INTEGER)
		LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("analytics: integrity check: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var insights []Insight
	for rows.Next() {
		var date, prev string
		if err := rows.Scan(&date, &prev); err != nil {
			return nil, fmt.Errorf("analytics: scan integrity row: %w", err)
		}
		insights = append(insights, Insight{
			Category: InsightIntegrity,
			Severity: "critical",
			Message:  fmt.Sprintf("Data entry error? %s follows %s in your logs.", date, prev),
		})
	}
	return insights, rows.Err()
}

// stagnationInsights flags exercises whose max effort has not moved
// across the last stagnationSessions sessions.
func (e *Engine) stagnationInsights(ctx context.Context, exercise string) ([]Insight, error) {
	query := `
		WITH ranked_workouts AS (
			SELECT exercise, date,
			       MAX(COALESCE(weight_kg, machine_level)) AS max_val,
			       ROW_NUMBER() OVER (PARTITION BY exercise ORDER BY date DESC) AS rn
			FROM training_history
			WHERE (weight_kg IS NOT NULL OR machine_level IS NOT NULL)`
	args := []any{}
	if exercise != "" {
		query += ` AND exercise = ?`
		args = append(args, exercise)
	}
	query += `
			GROUP BY exercise, date
		)
		SELECT exercise, max_val
		FROM ranked_workouts
		WHERE rn <= ?
		GROUP BY exercise, max_val
		HAVING COUNT(*) >= ?
		ORDER BY exercise`
	args = append(args, stagnationSessions, stagnationSessions)

	rows, err := e.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("analytics: stagnation check: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var insights []Insight
	for rows.Next() {
		var name string
		var maxVal float64
		if err := rows.Scan(&name, &maxVal); err != nil {
			return nil, fmt.Errorf("analytics: scan stagnation row: %w", err)
		}
		insights = append(insights, Insight{
			Category: InsightStagnation,
			Severity: "warning",
			Exercise: name,
			Message: fmt.Sprintf("Your performance on %s hasn't changed in the last %d sessions. Consider increasing load or reps.",
				name, stagnationSessions),
		})
	}
	return insights, rows.Err()
}

// progressInsights flags exercises whose load rose more than
// progressFactor within the trailing progressWindowDays.
func (e *Engine) progressInsights(ctx context.Context, exercise string) ([]Insight, error) {
	cutoff := timeNow().UTC().AddDate(0, 0, -progressWindowDays).Format(dayFormat)

	query := `
		SELECT exercise,
		       MIN(COALESCE(weight_kg, machine_level)) AS min_val,
		       MAX(COALESCE(weight_kg, machine_level)) AS max_val
		FROM training_history
		WHERE date >= ?
		  AND (weight_kg IS NOT NULL OR machine_level IS NOT NULL)`
	args := []any{cutoff}
	if exercise != "" {
		query += ` AND exercise = ?`
		args = append(args, exercise)
	}
	query += `
		GROUP BY exercise
		HAVING max_val > min_val * ?
		ORDER BY exercise`
	args = append(args, progressFactor)

	rows, err := e.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("analytics: progress check: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var insights []Insight
	for rows.Next() {
		var name string
		var minVal, maxVal float64
		if err := rows.Scan(&name, &minVal, &maxVal); err != nil {
			return nil, fmt.Errorf("analytics: scan progress row: %w", err)
		}
		insights = append(insights, Insight{
			Category: InsightProgress,
			Severity: "info",
			Exercise: name,
			Message:  fmt.Sprintf("Solid progress on %s! You've increased your load recently.", name),
		})
	}
	return insights, rows.Err()
}

// fatigueInsights warns when an exercise's average RPE over the
// trailing week crosses the overtraining threshold.
func (e *Engine) fatigueInsights(ctx context.Context, exercise string) ([]Insight, error) {
	cutoff := timeNow().UTC().AddDate(0, 0, -fatigueWindowDays).Format(dayFormat)

	query := `
		SELECT exercise, AVG(rpe) AS avg_rpe
		FROM training_history
		WHERE date >= ? AND rpe IS NOT NULL`
	args := []any{cutoff}
	if exercise != "" {
		query += ` AND exercise = ?`
		args = append(args, exercise)
	}
	query += `
		GROUP BY exercise
		HAVING AVG(rpe) > ?
		ORDER BY exercise`
	args = append(args, fatigueRPEThreshold)

	rows, err := e.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("analytics: fatigue check: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var insights []Insight
	for rows.Next() {
		var name string
		var avg float64
		if err := rows.Scan(&name, &avg); err != nil {
			return nil, fmt.Errorf("analytics: scan fatigue row: %w", err)
		}
		insights = append(insights, Insight{
			Category: InsightFatigue,
			Severity: "warning",
			Exercise: name,
			Message:  fmt.Sprintf("Intensity alert for %s (Avg RPE %.1f). Consider a deload.", name, avg),
		})
	}
	return insights, rows.Err()
}
