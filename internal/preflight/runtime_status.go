package preflight

import (
	"context"
	"fmt"
	"time"

	"draftbot/internal/api"
	"draftbot/internal/config"
)

// CheckDaemon reports whether a daemon answers on the configured API bind and
// how many approvals it is holding.
func CheckDaemon(ctx context.Context, cfg *config.Config) Result {
	const name = "Daemon"
	client, err := api.NewClient(cfg.API.Bind, cfg.API.Token)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid api.bind (%v)", err)}
	}
	if client == nil {
		return Result{Name: name, Detail: "api disabled (api.bind empty)"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	health, err := client.Health(checkCtx)
	if err != nil {
		if api.IsUnavailable(err) {
			return Result{Name: name, Detail: "not running"}
		}
		return Result{Name: name, Detail: summarizeError(err)}
	}
	detail := fmt.Sprintf("running (pid %d, %d pending, %d decided)", health.PID, health.Workflow.Pending, health.Workflow.Decided)
	if health.Workflow.LastError != "" {
		detail += "; last error: " + health.Workflow.LastError
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
