package app

import (
	"fmt"
	"os"

	"github.com/specialistvlad/bigcity/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// PlanReport is the YAML document written by --plan-out.
type PlanReport struct {
	Target     string               `yaml:"target"`
	TargetID   string               `yaml:"target_id"`
	DryRun     bool                 `yaml:"dry_run"`
	Complete   bool                 `yaml:"complete"`
	Error      string               `yaml:"error,omitempty"`
	Tasks      int                  `yaml:"tasks"`
	Layers     []pipeline.LayerPlan `yaml:"layers"`
	Unresolved []string             `yaml:"unresolved,omitempty"`
}

func newPlanReport(plan *pipeline.Plan, dryRun bool, runErr error) PlanReport {
	target := plan.Target()
	report := PlanReport{
		Target:   target.Name,
		TargetID: target.ID,
		DryRun:   dryRun,
		Complete: runErr == nil,
		Tasks:    plan.TaskCount(),
		Layers:   plan.Layers(),
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	for _, r := range plan.Unresolved() {
		report.Unresolved = append(report.Unresolved, r.String())
	}
	return report
}

func writePlanReport(path string, report PlanReport) error {
	out, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write plan to %s: %w", path, err)
	}
	return nil
}
