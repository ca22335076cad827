package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ReindexWorkflowName is the registered name of ReindexWorkflow.
const ReindexWorkflowName = "ReindexWorkflow"

// ReindexInput is the input for the reindex workflow.
type ReindexInput struct {
	// Source is reported in the places.changed event.
	Source string
	// MinPlaces refuses to announce a table smaller than this, so a
	// truncated import never replaces a good index.
	MinPlaces int
}

// ReindexResult summarizes one workflow run.
type ReindexResult struct {
	Backfilled int
	Places     int
}

// ReindexWorkflow fills in missing geohashes, checks the places table and
// tells every API instance to rebuild its index.
func ReindexWorkflow(ctx workflow.Context, input ReindexInput) (ReindexResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting reindex workflow", "source", input.Source)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var a *ReindexActivities
	var result ReindexResult

	if err := workflow.ExecuteActivity(ctx, a.BackfillGeohashes).Get(ctx, &result.Backfilled); err != nil {
		return result, err
	}

	if err := workflow.ExecuteActivity(ctx, a.CountPlaces).Get(ctx, &result.Places); err != nil {
		return result, err
	}
	if result.Places < input.MinPlaces {
		return result, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("only %d places stored, want at least %d", result.Places, input.MinPlaces),
			"TooFewPlaces", nil)
	}

	if err := workflow.ExecuteActivity(ctx, a.AnnouncePlacesChanged, input.Source, result.Places).Get(ctx, nil); err != nil {
		return result, err
	}

	logger.Info("Reindex announced", "places", result.Places, "backfilled", result.Backfilled)
	return result, nil
}
