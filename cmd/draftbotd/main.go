// Command draftbotd runs the approval daemon without the CLI, for service
// managers. The configuration file comes from $DRAFTBOT_CONFIG or the
// default location.
package main

import (
	"context"
	"log"

	"draftbot/internal/config"
	"draftbot/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("draftbotd: %v", err)
	}
}
