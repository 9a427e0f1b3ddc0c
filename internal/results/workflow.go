package results

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/Lllllllleong/documentpublisher/internal/models"
)

// WorkflowTrigger fires a downstream workflow execution once a run summary
// has been persisted, so notification and reporting stay out of this job.
type WorkflowTrigger struct {
	client     *executions.Client
	projectID  string
	location   string
	workflowID string
}

// NewWorkflowTrigger wraps an existing executions client.
func NewWorkflowTrigger(client *executions.Client, projectID, location, workflowID string) *WorkflowTrigger {
	return &WorkflowTrigger{client: client, projectID: projectID, location: location, workflowID: workflowID}
}

// Trigger starts the configured workflow with the run's headline numbers as
// its argument.
func (t *WorkflowTrigger) Trigger(ctx context.Context, summary models.RunSummary) error {
	payload := map[string]any{
		"runId":        summary.RunID,
		"successCount": summary.SuccessCount,
		"failureCount": summary.FailureCount,
		"deletedCount": len(summary.DeletedArtifacts),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}

	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", t.projectID, t.location, t.workflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	if _, err := t.client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}

	slog.Info("Triggered downstream workflow.", "workflowId", t.workflowID, "runId", summary.RunID)
	return nil
}
