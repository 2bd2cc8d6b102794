package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/sprinkler/pkg/client"

	"github.com/codeGROOVE-dev/autoreview/pkg/github"
)

const (
	eventChannelSize       = 100              // Buffer size for event channel
	eventDedupWindow       = 5 * time.Second  // Time window for deduplicating events
	eventMapMaxSize        = 1000             // Maximum entries in event dedup map
	eventMapCleanupAge     = 1 * time.Hour    // Age threshold for cleaning up old entries
	sprinklerMaxRetries    = 3                // Max retries for review runs
	sprinklerMaxDelay      = 10 * time.Second // Max delay between retries
	connectionHealthCheck  = 2 * time.Minute  // Check connection health every 2 minutes
	maxReconnectAttempts   = 100              // Max reconnection attempts
	reconnectBackoff       = 30 * time.Second // Initial backoff between reconnection attempts
	maxReconnectBackoffCap = 5 * time.Minute
)

// sprinklerMonitor manages WebSocket event subscriptions for a single org.
type sprinklerMonitor struct {
	mu                sync.RWMutex
	lastConnectedAt   time.Time // Last successful connection time
	lastEventAt       time.Time // Last event received time (for health monitoring)
	bot               *Bot
	client            *client.Client
	eventChan         chan string          // Channel for PR URLs that need reviewing
	lastEventMap      map[string]time.Time // Track last event per URL to dedupe
	stopChan          chan struct{}        // Channel to signal monitor should stop
	org               string               // Organization this monitor is for
	reconnectAttempts int                  // Current reconnection attempt count
	isRunning         bool
	isConnected       bool // Track WebSocket connection status
	isStopped         bool // Track if monitor was explicitly stopped
}

// newSprinklerMonitor creates a new sprinkler monitor for a specific org.
func newSprinklerMonitor(bot *Bot, org string) *sprinklerMonitor {
	return &sprinklerMonitor{
		bot:          bot,
		org:          org,
		eventChan:    make(chan string, eventChannelSize),
		lastEventMap: make(map[string]time.Time),
		stopChan:     make(chan struct{}),
	}
}

// start begins monitoring for PR events for this org.
func (sm *sprinklerMonitor) start(ctx context.Context) error {
	sm.mu.Lock()
	if sm.isRunning {
		sm.mu.Unlock()
		slog.Info("Monitor already running", "component", "sprinkler", "org", sm.org)
		return nil
	}
	sm.isRunning = true
	sm.isStopped = false
	sm.mu.Unlock()

	slog.Info("Starting event monitor for org", "component", "sprinkler", "org", sm.org)

	go sm.processEvents(ctx)
	go sm.manageConnection(ctx)
	go sm.monitorHealth(ctx)

	slog.Info("Event monitor started successfully", "component", "sprinkler", "org", sm.org)
	return nil
}

// manageConnection manages the WebSocket connection with automatic reconnection.
// The sprinkler client has its own internal reconnection logic with exponential
// backoff, so this loop only restarts the client when it gives up entirely.
func (sm *sprinklerMonitor) manageConnection(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Connection manager panic", "component", "sprinkler", "org", sm.org, "panic", r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Context cancelled, stopping connection manager", "component", "sprinkler", "org", sm.org)
			return
		case <-sm.stopChan:
			slog.Info("Stop signal received, stopping connection manager", "component", "sprinkler", "org", sm.org)
			return
		default:
			sm.mu.RLock()
			stopped := sm.isStopped
			sm.mu.RUnlock()

			if stopped {
				return
			}

			if err := sm.connectWebSocket(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					slog.Info("WebSocket client stopped due to context cancellation", "component", "sprinkler", "org", sm.org)
					return
				}

				sm.mu.Lock()
				sm.reconnectAttempts++
				attempts := sm.reconnectAttempts
				sm.mu.Unlock()

				if attempts >= maxReconnectAttempts {
					slog.Error("Max outer reconnection attempts reached, giving up", "component", "sprinkler", "org", sm.org, "attempts", attempts)
					return
				}

				backoff := reconnectBackoff * time.Duration(attempts)
				if backoff > maxReconnectBackoffCap {
					backoff = maxReconnectBackoffCap
				}

				slog.Warn("WebSocket client gave up, will restart after backoff",
					"component", "sprinkler",
					"org", sm.org,
					"outer_attempt", attempts,
					"backoff", backoff,
					"error", err)

				select {
				case <-ctx.Done():
					return
				case <-sm.stopChan:
					return
				case <-time.After(backoff):
				}
			} else {
				slog.Info("WebSocket client exited cleanly", "component", "sprinkler", "org", sm.org)

				sm.mu.Lock()
				sm.reconnectAttempts = 0
				sm.mu.Unlock()

				select {
				case <-ctx.Done():
					return
				case <-sm.stopChan:
					return
				case <-time.After(5 * time.Second):
				}
			}
		}
	}
}

// connectWebSocket establishes a WebSocket connection.
func (sm *sprinklerMonitor) connectWebSocket(ctx context.Context) error {
	config := client.Config{
		ServerURL:    "wss://" + client.DefaultServerAddress + "/ws",
		Organization: sm.org,
		// TokenProvider refreshes installation tokens as they expire.
		TokenProvider: func() (string, error) {
			token, err := sm.bot.client.Token(github.WithOrg(ctx, sm.org))
			if err != nil {
				return "", fmt.Errorf("failed to get token: %w", err)
			}
			return token, nil
		},
		EventTypes:     []string{"pull_request"},
		UserEventsOnly: false,
		Verbose:        false,
		NoReconnect:    false,
		OnConnect: func() {
			sm.mu.Lock()
			sm.isConnected = true
			sm.lastConnectedAt = time.Now()
			sm.mu.Unlock()
			slog.Info("WebSocket connected", "component", "sprinkler", "org", sm.org)
		},
		OnDisconnect: func(err error) {
			sm.mu.Lock()
			wasConnected := sm.isConnected
			sm.isConnected = false
			sm.mu.Unlock()
			if err != nil && !errors.Is(err, context.Canceled) && wasConnected {
				slog.Warn("WebSocket disconnected", "component", "sprinkler", "org", sm.org, "error", err)
			}
		},
		OnEvent: func(event client.Event) {
			sm.handleEvent(event)
		},
	}

	wsClient, err := client.New(config)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	sm.mu.Lock()
	sm.client = wsClient
	sm.mu.Unlock()

	slog.Info("Starting WebSocket client", "component", "sprinkler", "org", sm.org)
	startTime := time.Now()

	if err := wsClient.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("WebSocket client stopped with error",
			"component", "sprinkler",
			"org", sm.org,
			"uptime", time.Since(startTime).Round(time.Second),
			"error", err)
		return err
	}

	slog.Info("WebSocket client stopped", "component", "sprinkler", "org", sm.org, "uptime", time.Since(startTime).Round(time.Second))
	return nil
}

// monitorHealth logs connection health periodically.
func (sm *sprinklerMonitor) monitorHealth(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Health monitor panic", "component", "sprinkler", "org", sm.org, "panic", r)
		}
	}()

	ticker := time.NewTicker(connectionHealthCheck)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sm.stopChan:
			return
		case <-ticker.C:
			sm.mu.RLock()
			isConnected := sm.isConnected
			lastConnected := sm.lastConnectedAt
			lastEvent := sm.lastEventAt
			stopped := sm.isStopped
			sm.mu.RUnlock()

			if stopped {
				return
			}

			now := time.Now()

			if isConnected {
				timeSinceConnect := now.Sub(lastConnected)
				var timeSinceEvent time.Duration
				if !lastEvent.IsZero() {
					timeSinceEvent = now.Sub(lastEvent)
				}
				slog.Info("Sprinkler health check - connected",
					"component", "sprinkler",
					"org", sm.org,
					"connected_for", timeSinceConnect.Round(time.Second),
					"time_since_last_event", timeSinceEvent.Round(time.Second))
			} else {
				// Reconnection is handled by manageConnection and the
				// client's internal retry; only report status here.
				if !lastConnected.IsZero() {
					disconnectedFor := now.Sub(lastConnected)
					slog.Warn("Sprinkler health check - disconnected",
						"component", "sprinkler",
						"org", sm.org,
						"disconnected_for", disconnectedFor.Round(time.Second))
				} else {
					slog.Info("Sprinkler health check - not yet connected",
						"component", "sprinkler",
						"org", sm.org)
				}
			}
		}
	}
}

// handleEvent processes incoming PR events.
func (sm *sprinklerMonitor) handleEvent(event client.Event) {
	if event.Type != "pull_request" {
		return
	}

	if event.URL == "" {
		slog.Warn("Received PR event with empty URL", "component", "sprinkler")
		return
	}

	// Extract org from URL (format: https://github.com/org/repo/pull/123)
	parts := strings.Split(event.URL, "/")
	const minParts = 5
	if len(parts) < minParts || parts[2] != "github.com" {
		slog.Warn("Failed to extract org from URL", "component", "sprinkler", "url", event.URL, "org", sm.org)
		return
	}
	org := parts[3]

	if org != sm.org {
		slog.Debug("Ignoring event for different org", "component", "sprinkler", "event_org", org, "monitor_org", sm.org)
		return
	}

	// Dedupe events - only review if we haven't seen this URL recently
	sm.mu.Lock()
	lastSeen, exists := sm.lastEventMap[event.URL]
	now := time.Now()
	if exists && now.Sub(lastSeen) < eventDedupWindow {
		sm.mu.Unlock()
		return
	}
	sm.lastEventMap[event.URL] = now
	sm.lastEventAt = now

	// Clean up old entries to prevent memory leak
	if len(sm.lastEventMap) > eventMapMaxSize {
		cutoff := now.Add(-eventMapCleanupAge)
		for url, timestamp := range sm.lastEventMap {
			if timestamp.Before(cutoff) {
				delete(sm.lastEventMap, url)
			}
		}
	}
	sm.mu.Unlock()

	slog.Info("PR event received", "component", "sprinkler", "url", event.URL, "org", sm.org)

	select {
	case sm.eventChan <- event.URL:
	default:
		slog.Warn("Event channel full, dropping event", "component", "sprinkler", "url", event.URL)
	}
}

// processEvents reviews PRs as their events arrive.
func (sm *sprinklerMonitor) processEvents(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event processor panic", "component", "sprinkler", "panic", r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case prURL := <-sm.eventChan:
			sm.processEvent(ctx, prURL)
		}
	}
}

// processEvent runs a review for a single PR event.
func (sm *sprinklerMonitor) processEvent(ctx context.Context, prURL string) {
	startTime := time.Now()

	ref, err := parseEventURL(prURL)
	if err != nil {
		slog.Warn("Failed to parse PR URL", "component", "sprinkler", "url", prURL, "error", err)
		return
	}

	slog.Info("Reviewing PR from event", "component", "sprinkler", "owner", ref.owner, "repo", ref.repo, "pr", ref.number)

	ctx = github.WithOrg(ctx, ref.owner)

	err = retry.Do(func() error {
		return sm.bot.processSinglePR(ctx, ref.owner, ref.repo, ref.number)
	},
		retry.Attempts(sprinklerMaxRetries),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxDelay(sprinklerMaxDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Info("Retrying review", "component", "sprinkler", "attempt", n+1, "owner", ref.owner, "repo", ref.repo, "pr", ref.number, "error", err)
		}),
		retry.Context(ctx),
	)
	if err != nil {
		slog.Error("Failed to review PR after retries",
			"component", "sprinkler",
			"owner", ref.owner,
			"repo", ref.repo,
			"pr", ref.number,
			"elapsed", time.Since(startTime).Round(time.Millisecond),
			"error", err)
		return
	}

	slog.Info("Successfully reviewed PR",
		"component", "sprinkler",
		"owner", ref.owner,
		"repo", ref.repo,
		"pr", ref.number,
		"elapsed", time.Since(startTime).Round(time.Millisecond))
}

// stop stops the sprinkler monitor.
func (sm *sprinklerMonitor) stop() {
	sm.mu.Lock()
	if !sm.isRunning {
		sm.mu.Unlock()
		return
	}

	slog.Info("Stopping event monitor", "component", "sprinkler", "org", sm.org)
	sm.isRunning = false
	sm.isStopped = true
	sm.mu.Unlock()

	close(sm.stopChan)

	sm.mu.RLock()
	wsClient := sm.client
	sm.mu.RUnlock()

	if wsClient != nil {
		wsClient.Stop()
	}

	slog.Info("Event monitor stopped", "component", "sprinkler", "org", sm.org)
}

// prRef holds a parsed PR reference.
type prRef struct {
	owner  string
	repo   string
	number int
}

// parseEventURL extracts owner, repo, and PR number from an event URL.
// URL format: https://github.com/owner/repo/pull/123
func parseEventURL(url string) (*prRef, error) {
	const minParts = 7
	parts := strings.Split(url, "/")
	if len(parts) < minParts || parts[2] != "github.com" {
		return nil, fmt.Errorf("invalid GitHub PR URL format: %s", url)
	}

	owner := parts[3]
	repo := parts[4]

	var number int
	_, scanErr := fmt.Sscanf(parts[6], "%d", &number)
	if scanErr != nil {
		return nil, fmt.Errorf("invalid PR number in URL: %s", url)
	}

	return &prRef{owner: owner, repo: repo, number: number}, nil
}
