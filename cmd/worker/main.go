// Worker executable for contextbudget.
//
// Starts a Temporal worker hosting the session workflow and the budget
// pipeline activities.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/agentfold/contextbudget/internal/activities"
	"github.com/agentfold/contextbudget/internal/llm"
	"github.com/agentfold/contextbudget/internal/logging"
	"github.com/agentfold/contextbudget/internal/temporalclient"
	"github.com/agentfold/contextbudget/internal/tokens"
	"github.com/agentfold/contextbudget/internal/version"
	"github.com/agentfold/contextbudget/internal/workflow"
)

const TaskQueue = "contextbudget"

func main() {
	// Best-effort: local development keeps keys in .env.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	hasAnthropic := os.Getenv("ANTHROPIC_API_KEY") != ""
	hasOpenAI := os.Getenv("OPENAI_API_KEY") != ""
	if !hasAnthropic && !hasOpenAI {
		sugar.Fatal("At least one LLM provider API key is required: ANTHROPIC_API_KEY or OPENAI_API_KEY")
	}
	if hasAnthropic {
		sugar.Info("Anthropic provider available")
	}
	if hasOpenAI {
		sugar.Info("OpenAI provider available")
	}

	opts := temporalclient.MustLoadClientOptions("", "")

	c, err := client.Dial(opts)
	if err != nil {
		sugar.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflow.SessionWorkflow)
	w.RegisterWorkflow(workflow.SessionWorkflowContinued)

	// Token counting: the Anthropic CountTokens endpoint when available,
	// the character heuristic otherwise.
	var est tokens.Estimator = tokens.Heuristic{}
	if hasAnthropic && os.Getenv("CONTEXTBUDGET_API_COUNTER") != "" {
		est = llm.NewAPIEstimator(os.Getenv("CONTEXTBUDGET_API_COUNTER"))
		sugar.Info("Using API-backed token counting")
	}

	store := activities.NewSessionStore(est, logging.NewAdapter(logger), logging.NewEventRecorder(logger))
	budgetActivities := activities.NewBudgetActivities(store)

	w.RegisterActivity(budgetActivities.InitializeSession)
	w.RegisterActivity(budgetActivities.ExecuteMask)
	w.RegisterActivity(budgetActivities.ExecuteCompress)
	w.RegisterActivity(budgetActivities.ExecuteListDeclarations)
	w.RegisterActivity(budgetActivities.ExecuteSearchTools)
	w.RegisterActivity(budgetActivities.ExecuteGetTool)
	w.RegisterActivity(budgetActivities.CleanupSession)

	sugar.Infof("Worker version: %s", version.GitCommit)
	sugar.Infof("Starting worker on task queue: %s", TaskQueue)
	if opts.HostPort != "" {
		sugar.Infof("Temporal server: %s", opts.HostPort)
	}

	if err := w.Run(worker.InterruptCh()); err != nil {
		sugar.Fatalf("Worker failed: %v", err)
	}

	sugar.Info("Worker stopped")
}
