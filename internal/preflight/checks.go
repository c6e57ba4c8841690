package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sys/unix"

	"draftbot/internal/config"
	"draftbot/internal/journal"
	"draftbot/internal/publish"
	"draftbot/internal/services/llm"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, cfg *config.Config) Result {
	const name = "LLM"
	if cfg.LLM.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	}, llm.WithRetryMaxAttempts(0))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%s)", client.Model())}
}

// CheckHomeAssistant verifies the REST API answers with the long-lived token.
func CheckHomeAssistant(ctx context.Context, baseURL, token string) Result {
	const name = "Home Assistant"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "missing token"}
	}

	status, err := authorizedGet(ctx, base+"/api/", "Bearer "+strings.TrimSpace(token), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%s)", summarizeError(err))}
	}
	switch status {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid token)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", status)}
	}
}

// CheckDiscord verifies the bot token can read the approval channel. An
// empty apiBase uses Discord's public endpoint.
func CheckDiscord(ctx context.Context, apiBase, token, channelID string) Result {
	const name = "Discord"

	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "missing bot token"}
	}
	if strings.TrimSpace(channelID) == "" {
		return Result{Name: name, Detail: "missing channel id"}
	}
	if apiBase == "" {
		apiBase = discordgo.EndpointAPI
	}

	var channel struct {
		Name string `json:"name"`
	}
	endpoint := strings.TrimRight(apiBase, "/") + "/channels/" + strings.TrimSpace(channelID)
	status, err := authorizedGet(ctx, endpoint, "Bot "+strings.TrimSpace(token), &channel)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("channel check failed (%s)", summarizeError(err))}
	}
	switch status {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("channel #%s reachable", channel.Name)}
	case http.StatusUnauthorized:
		return Result{Name: name, Detail: "auth failed (invalid bot token)"}
	case http.StatusForbidden, http.StatusNotFound:
		return Result{Name: name, Detail: "bot cannot see the approval channel"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("channel check failed (%d)", status)}
	}
}

// CheckMedium verifies the integration token.
func CheckMedium(ctx context.Context, cfg *config.Config) Result {
	const name = "Medium"
	client := publish.NewMediumClient(cfg, nil)
	if client == nil {
		return Result{Name: name, Detail: "missing integration token"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	user, err := client.Me(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("authenticated as @%s", user.Username)}
}

// CheckJournal opens the journal, which also applies the schema, and pings it.
func CheckJournal(ctx context.Context, path string) Result {
	const name = "Journal"
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first run)", path)}
	}
	store, err := journal.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func authorizedGet(ctx context.Context, endpoint, authorization string, out any) (int, error) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", authorization)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}

// summarizeError produces a human-readable summary for check failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (service unreachable)"
	}
	return err.Error()
}
