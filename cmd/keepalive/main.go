package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"finbudget/internal/cli"
)

const (
	pingRetries    = 3
	retryBackoff   = 30 * time.Second
	requestTimeout = 10 * time.Second
)

// ping hits the target once, retrying with a fixed backoff. Free-tier hosts
// suspend idle services, so a single transient failure must not give up
// before the host has had a chance to wake.
func ping(client *http.Client, target string) error {
	var lastErr error
	for attempt := 1; attempt <= pingRetries; attempt++ {
		resp, err := client.Get(target)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
		} else {
			lastErr = err
		}
		if attempt < pingRetries {
			time.Sleep(retryBackoff)
		}
	}
	return fmt.Errorf("ping failed after %d attempts: %w", pingRetries, lastErr)
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.PingTargetURL == "" {
		logger.Error("PING_TARGET_URL is required for the keepalive pinger")
		os.Exit(1)
	}

	client := &http.Client{Timeout: requestTimeout}

	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.PingInterval), func() {
		start := time.Now()
		if err := ping(client, cfg.PingTargetURL); err != nil {
			logger.Error("Keepalive ping failed", "target", cfg.PingTargetURL, "error", err)
			return
		}
		logger.Info("Keepalive ping succeeded", "target", cfg.PingTargetURL, "duration", time.Since(start).String())
	})
	if err != nil {
		logger.Error("Failed to schedule keepalive job", "error", err)
		os.Exit(1)
	}

	// Fire once immediately; cron only runs on schedule boundaries.
	if err := ping(client, cfg.PingTargetURL); err != nil {
		logger.Warn("Initial keepalive ping failed", "target", cfg.PingTargetURL, "error", err)
	}

	c.Start()
	logger.Info("Keepalive pinger started", "target", cfg.PingTargetURL, "interval", cfg.PingInterval.String())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		<-c.Stop().Done()
	})
	cli.WaitForShutdown(ctx, done)
	logger.Info("Keepalive pinger stopped")
}
