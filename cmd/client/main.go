// CLI client for contextbudget session workflows.
//
// Sub-commands:
//
//	start    [--model ...] [--storage-dir ...]        Start a session, print workflow ID
//	send     --workflow-id <id> --message "..."       Append a user turn
//	observe  --workflow-id <id> --tool <name> --call-id <id> --file <path>
//	                                                  Append a tool observation turn
//	compact  --workflow-id <id>                       Force a compression pass
//	history  --workflow-id <id>                       Print conversation history
//	stats    --workflow-id <id>                       Print budget statistics
//	end      --workflow-id <id>                       Shut the session down
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/agentfold/contextbudget/internal/models"
	"github.com/agentfold/contextbudget/internal/temporalclient"
	"github.com/agentfold/contextbudget/internal/tools"
	"github.com/agentfold/contextbudget/internal/workflow"
)

const TaskQueue = "contextbudget"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		cmdStart(os.Args[2:])
	case "send":
		cmdSend(os.Args[2:])
	case "observe":
		cmdObserve(os.Args[2:])
	case "compact":
		cmdCompact(os.Args[2:])
	case "history":
		cmdHistory(os.Args[2:])
	case "stats":
		cmdStats(os.Args[2:])
	case "end":
		cmdEnd(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown sub-command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: client <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  start    Start a new session workflow")
	fmt.Fprintln(os.Stderr, "  send     Append a user turn to a running session")
	fmt.Fprintln(os.Stderr, "  observe  Append a tool observation from a file")
	fmt.Fprintln(os.Stderr, "  compact  Force a compression pass")
	fmt.Fprintln(os.Stderr, "  history  Print the conversation history")
	fmt.Fprintln(os.Stderr, "  stats    Print budget statistics")
	fmt.Fprintln(os.Stderr, "  end      Shut the session down")
}

func dialTemporal() client.Client {
	opts := temporalclient.MustLoadClientOptions("", "")
	c, err := client.Dial(opts)
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	return c
}

func cmdStart(args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	provider := fs.String("provider", "anthropic", "Summarizer provider: anthropic or openai")
	model := fs.String("model", "claude-sonnet-4-5", "Summarizer model")
	storageDir := fs.String("storage-dir", "", "Root directory for offloaded files (default: OS temp dir)")
	fs.Parse(args)

	c := dialTemporal()
	defer c.Close()

	sessionID := fmt.Sprintf("cb-%s", uuid.New().String()[:8])

	cfg := models.DefaultSessionConfiguration()
	cfg.Model.Provider = *provider
	cfg.Model.Model = *model
	cfg.Budget.StorageDir = *storageDir

	input := workflow.WorkflowInput{
		SessionID:   sessionID,
		Config:      cfg,
		NativeTools: tools.DefaultNativeEntries(),
	}

	run, err := c.ExecuteWorkflow(context.Background(), client.StartWorkflowOptions{
		ID:        sessionID,
		TaskQueue: TaskQueue,
	}, "SessionWorkflow", input)
	if err != nil {
		log.Fatalf("Failed to start workflow: %v", err)
	}

	log.Printf("Session started, run ID: %s", run.GetRunID())
	fmt.Println(sessionID)
}

func cmdSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	workflowID := fs.String("workflow-id", "", "Workflow ID (required)")
	message := fs.String("message", "", "User message (required)")
	fs.Parse(args)

	if *workflowID == "" || *message == "" {
		log.Fatal("Error: --workflow-id and --message are required")
	}

	turn := models.Turn{
		Role:  models.RoleUser,
		Parts: []models.Part{models.NewTextPart(*message)},
	}
	resp := appendTurn(*workflowID, turn)
	printJSON(resp)
}

func cmdObserve(args []string) {
	fs := flag.NewFlagSet("observe", flag.ExitOnError)
	workflowID := fs.String("workflow-id", "", "Workflow ID (required)")
	tool := fs.String("tool", "", "Tool name (required)")
	callID := fs.String("call-id", "", "Call identifier (required)")
	file := fs.String("file", "", "File holding the observation content (required)")
	fs.Parse(args)

	if *workflowID == "" || *tool == "" || *callID == "" || *file == "" {
		log.Fatal("Error: --workflow-id, --tool, --call-id, and --file are required")
	}

	content, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *file, err)
	}
	payload, err := json.Marshal(string(content))
	if err != nil {
		log.Fatalf("Failed to encode observation: %v", err)
	}

	turn := models.Turn{
		Role:  models.RoleUser,
		Parts: []models.Part{models.NewFunctionResponsePart(*tool, *callID, payload)},
	}
	resp := appendTurn(*workflowID, turn)
	printJSON(resp)
}

// appendTurn sends the user_input Update and waits for the pipeline result.
func appendTurn(workflowID string, turn models.Turn) workflow.AppendTurnResponse {
	c := dialTemporal()
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	handle, err := c.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   workflowID,
		UpdateName:   workflow.UpdateUserInput,
		Args:         []interface{}{workflow.AppendTurnRequest{Turn: turn}},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		log.Fatalf("Failed to send turn: %v", err)
	}

	var resp workflow.AppendTurnResponse
	if err := handle.Get(ctx, &resp); err != nil {
		log.Fatalf("Update failed: %v", err)
	}
	return resp
}

func cmdCompact(args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	workflowID := fs.String("workflow-id", "", "Workflow ID (required)")
	fs.Parse(args)

	if *workflowID == "" {
		log.Fatal("Error: --workflow-id is required")
	}

	c := dialTemporal()
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	handle, err := c.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   *workflowID,
		UpdateName:   workflow.UpdateCompact,
		Args:         []interface{}{workflow.CompactRequest{}},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		log.Fatalf("Failed to request compaction: %v", err)
	}

	var resp workflow.CompactResponse
	if err := handle.Get(ctx, &resp); err != nil {
		log.Fatalf("Compact failed: %v", err)
	}
	printJSON(resp)
}

func cmdHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	workflowID := fs.String("workflow-id", "", "Workflow ID (required)")
	fs.Parse(args)

	if *workflowID == "" {
		log.Fatal("Error: --workflow-id is required")
	}

	c := dialTemporal()
	defer c.Close()

	resp, err := c.QueryWorkflow(context.Background(), *workflowID, "", workflow.QueryGetHistory)
	if err != nil {
		log.Fatalf("Failed to query history: %v", err)
	}

	var history []models.Turn
	if err := resp.Get(&history); err != nil {
		log.Fatalf("Failed to decode history: %v", err)
	}
	printJSON(history)
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	workflowID := fs.String("workflow-id", "", "Workflow ID (required)")
	fs.Parse(args)

	if *workflowID == "" {
		log.Fatal("Error: --workflow-id is required")
	}

	c := dialTemporal()
	defer c.Close()

	resp, err := c.QueryWorkflow(context.Background(), *workflowID, "", workflow.QueryGetBudgetStats)
	if err != nil {
		log.Fatalf("Failed to query stats: %v", err)
	}

	var stats workflow.BudgetStats
	if err := resp.Get(&stats); err != nil {
		log.Fatalf("Failed to decode stats: %v", err)
	}
	printJSON(stats)
}

func cmdEnd(args []string) {
	fs := flag.NewFlagSet("end", flag.ExitOnError)
	workflowID := fs.String("workflow-id", "", "Workflow ID (required)")
	reason := fs.String("reason", "", "Shutdown reason")
	fs.Parse(args)

	if *workflowID == "" {
		log.Fatal("Error: --workflow-id is required")
	}

	c := dialTemporal()
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	handle, err := c.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   *workflowID,
		UpdateName:   workflow.UpdateShutdown,
		Args:         []interface{}{workflow.ShutdownRequest{Reason: *reason}},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		log.Fatalf("Failed to send shutdown: %v", err)
	}

	var resp workflow.ShutdownResponse
	if err := handle.Get(ctx, &resp); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
	log.Printf("Shutdown acknowledged: %v", resp.Acknowledged)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal output: %v", err)
	}
	fmt.Println(string(data))
}
