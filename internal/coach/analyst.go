package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/patrickpassosb/biome/internal/analytics"
	"github.com/patrickpassosb/biome/internal/llm"
	"github.com/patrickpassosb/biome/internal/plan"
)

const analystSystem = `You are the Biome Workout Specialist, the analysis half of an AI coaching team. You read structured training data and curate findings: weak points, progress notes, consistency problems, volume alerts, and technique notes. Keep every message short, specific, and grounded in the numbers provided. Never invent exercises the lifter has not logged.`

// Analyst turns logged training into validated findings. Detections
// are deterministic; the model's job is to curate and rank them, and
// to add technique notes the data supports.
type Analyst struct {
	engine  *analytics.Engine
	builder *ContextBuilder
	client  llm.Client
	cfg     Config
}

// NewAnalyst wires the analysis stage.
func NewAnalyst(engine *analytics.Engine, builder *ContextBuilder, client llm.Client, cfg Config) *Analyst {
	return &Analyst{engine: engine, builder: builder, client: client, cfg: cfg.withDefaults()}
}

// Analyze runs the deterministic detections, then asks the model to
// curate them. An empty curation keeps the detections; a schema
// violation gets one repair round before the stage fails.
func (a *Analyst) Analyze(ctx context.Context) (plan.Findings, error) {
	detected, err := a.detect(ctx)
	if err != nil {
		return plan.Findings{}, err
	}
	return a.enrich(ctx, detected)
}

// detect maps insights and weak points onto the findings contract.
func (a *Analyst) detect(ctx context.Context) (plan.Findings, error) {
	insights, err := a.engine.Insights(ctx, "")
	if err != nil {
		return plan.Findings{}, fmt.Errorf("coach: insights: %w", err)
	}
	weakPoints, err := a.engine.WeakPoints(ctx)
	if err != nil {
		return plan.Findings{}, fmt.Errorf("coach: weak points: %w", err)
	}

	var f plan.Findings
	for _, in := range insights {
		f.Items = append(f.Items, findingFromInsight(in))
	}
	for _, wp := range weakPoints {
		f.Items = append(f.Items, findingFromWeakPoint(wp))
	}
	if len(f.Items) > a.cfg.MaxFindings {
		f.Items = f.Items[:a.cfg.MaxFindings]
	}
	return f, nil
}

func findingFromInsight(in analytics.Insight) plan.Finding {
	f := plan.Finding{
		Message:         in.Message,
		RelatedExercise: in.Exercise,
		Severity:        plan.Severity(in.Severity),
	}
	if plan.ValidateSeverity(f.Severity) != nil {
		f.Severity = plan.SeverityInfo
	}
	switch in.Category {
	case analytics.InsightIntegrity:
		f.Type = plan.FindingConsistency
	case analytics.InsightStagnation:
		f.Type = plan.FindingWeakPoint
		f.RelatedMetric = analytics.MetricMaxWeight
	case analytics.InsightProgress:
		f.Type = plan.FindingProgress
		f.RelatedMetric = analytics.MetricMaxWeight
	case analytics.InsightFatigue:
		f.Type = plan.FindingVolumeAlert
		f.RelatedMetric = analytics.MetricAverageRPE
	default:
		f.Type = plan.FindingTechniqueNote
	}
	return f
}

func findingFromWeakPoint(wp analytics.WeakPoint) plan.Finding {
	switch wp.Reason {
	case analytics.ReasonVolumeDrop:
		return plan.Finding{
			Type:            plan.FindingWeakPoint,
			Severity:        plan.SeverityWarning,
			RelatedMetric:   analytics.MetricVolumeLoad,
			RelatedExercise: wp.Exercise,
			Message:         fmt.Sprintf("Weekly volume on %s dropped to %.0f against a baseline of %.0f.", wp.Exercise, wp.Current, wp.Baseline),
		}
	case analytics.ReasonFrequencyDrop:
		return plan.Finding{
			Type:            plan.FindingWeakPoint,
			Severity:        plan.SeverityWarning,
			RelatedMetric:   analytics.MetricWeeklyFrequency,
			RelatedExercise: wp.Exercise,
			Message:         fmt.Sprintf("You trained %s on %.0f day(s) this week versus a baseline of %.1f.", wp.Exercise, wp.Current, wp.Baseline),
		}
	default: // absent focus area
		return plan.Finding{
			Type:            plan.FindingConsistency,
			Severity:        plan.SeverityWarning,
			RelatedExercise: wp.Exercise,
			Message:         fmt.Sprintf("Focus area %q has no logged sessions in the recent training window.", wp.Exercise),
		}
	}
}

// enrich asks the model to curate the detected findings. The model
// may rerank, rephrase, merge, or extend; replying with an empty list
// means "nothing to add" and keeps the detections as they are.
func (a *Analyst) enrich(ctx context.Context, detected plan.Findings) (plan.Findings, error) {
	schema, err := plan.FindingsSchema()
	if err != nil {
		return plan.Findings{}, err
	}
	snapshot, err := a.builder.Snapshot(ctx)
	if err != nil {
		return plan.Findings{}, err
	}
	prompt := analysisPrompt(snapshot, detected)

	resp, err := a.client.Complete(ctx, llm.Request{System: analystSystem, Prompt: prompt, Schema: schema})
	if err != nil {
		return plan.Findings{}, fmt.Errorf("coach: findings request: %w", err)
	}

	curated, parseErr := plan.ParseFindingsResponse(resp.Text)
	for retry := 0; parseErr != nil && retry < a.cfg.RepairRetries; retry++ {
		var violation *plan.SchemaViolationError
		if !errors.As(parseErr, &violation) {
			return plan.Findings{}, parseErr
		}
		resp, err = a.client.Complete(ctx, llm.Request{
			System: analystSystem,
			Prompt: repairPrompt(prompt, resp.Text, violation.Issues),
			Schema: schema,
		})
		if err != nil {
			return plan.Findings{}, fmt.Errorf("coach: findings repair request: %w", err)
		}
		curated, parseErr = plan.ParseFindingsResponse(resp.Text)
	}
	if parseErr != nil {
		return plan.Findings{}, fmt.Errorf("coach: findings invalid after repair: %w", parseErr)
	}

	if len(curated.Items) == 0 {
		return detected, nil
	}
	if len(curated.Items) > a.cfg.MaxFindings {
		curated.Items = curated.Items[:a.cfg.MaxFindings]
	}
	return curated, nil
}

func analysisPrompt(snapshot Snapshot, detected plan.Findings) string {
	var b strings.Builder
	b.WriteString("Review this training data and the detections below. Curate the findings for the lifter's coach: keep what matters, merge duplicates, rank by severity, and add technique notes only where the data supports them. Reply with an empty findings list if the detections already say it all.\n\n")
	b.WriteString("Context (User Data & Trends):\n")
	b.WriteString(snapshot.Render())
	b.WriteString("\n\nDetected findings:\n")
	b.WriteString(mustJSON(detected))
	return b.String()
}

func repairPrompt(original, rejected string, issues []string) string {
	var b strings.Builder
	b.WriteString(original)
	b.WriteString("\n\nYour previous response was rejected:\n")
	for _, issue := range issues {
		b.WriteString("- " + issue + "\n")
	}
	b.WriteString("\nRejected response:\n")
	b.WriteString(rejected)
	b.WriteString("\n\nReturn a corrected JSON document that fixes every issue.")
	return b.String()
}
