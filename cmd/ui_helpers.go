// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"sqlpilot/cli/internal/config"
	"sqlpilot/cli/internal/dialect"
	"sqlpilot/cli/internal/gateway"
	"sqlpilot/cli/internal/keychain"
	"sqlpilot/cli/internal/llm"
	"sqlpilot/cli/internal/logging"
	"sqlpilot/cli/internal/pipeline"
	"sqlpilot/cli/internal/querycache"
)

// maxRenderedRows caps how many result rows are printed to the terminal.
const maxRenderedRows = 20

// session bundles everything a command needs to run the pipeline: config,
// logger, database gateway, model client, and the shared query cache.
type session struct {
	cfg    config.Config
	logger *zap.Logger
	gw     gateway.Gateway
	cache  *querycache.Cache
	orch   *pipeline.Orchestrator
}

// newSession loads configuration, resolves credentials, connects to the
// database, and assembles the orchestrator.
func newSession(ctx context.Context, verbose bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	logger := logging.New(cfg.LogLevel)

	d, dsn, err := resolveTarget(cfg)
	if err != nil {
		return nil, err
	}

	gw, err := gateway.Open(ctx, d, dsn)
	if err != nil {
		return nil, err
	}

	apiKey, err := keychain.ResolveAPIKey()
	if err != nil {
		gw.Close()
		return nil, err
	}
	collab, err := llm.NewClient(cfg.Model, apiKey, logger)
	if err != nil {
		gw.Close()
		return nil, err
	}

	cache := querycache.New(cfg.CacheCapacity)
	s := &session{cfg: cfg, logger: logger, gw: gw, cache: cache}
	s.orch = pipeline.New(gw, collab, cache,
		pipeline.WithLogger(logger),
		pipeline.WithEventSink(renderEvent))
	return s, nil
}

func (s *session) close() {
	s.gw.Close()
	_ = s.logger.Sync()
}

// resolveTarget picks the database to talk to. A DSN stored in the keychain
// (or SQLPILOT_DSN) wins; otherwise the configured SQLite file is used.
func resolveTarget(cfg config.Config) (dialect.Dialect, string, error) {
	if dsn, err := keychain.ResolveDSN(); err == nil {
		d := dialect.Detect(dsn)
		if d == dialect.Unknown {
			parsed, perr := dialect.Parse(cfg.Dialect)
			if perr != nil {
				return dialect.Unknown, "", fmt.Errorf("cannot determine dialect for stored DSN: %w", perr)
			}
			d = parsed
		}
		return d, dsn, nil
	}
	return dialect.SQLite, cfg.SQLitePath, nil
}

// runToCompletion drives a question through the pipeline, prompting the user
// whenever a sensitive statement suspends for approval.
func runToCompletion(ctx context.Context, s *session, question string, maxRetries int) (*pipeline.Request, error) {
	if maxRetries <= 0 {
		maxRetries = s.cfg.MaxRetries
	}
	req, err := s.orch.Ask(ctx, question, maxRetries)
	if err != nil {
		return req, err
	}
	for req != nil && req.Status == pipeline.StatusAwaitingApproval {
		approved := promptApproval(req)
		req, err = s.orch.Resume(ctx, req.ID, approved)
		if err != nil {
			return req, err
		}
	}
	return req, nil
}

// promptApproval shows the sensitive statement and asks for confirmation.
// Declining, or anything other than an explicit yes, denies it.
func promptApproval(req *pipeline.Request) bool {
	cursor.Show()
	pterm.Println()
	pterm.Println(pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprint("⚠ This statement modifies data or schema"))
	pterm.Println(pterm.NewStyle(pterm.FgLightWhite).Sprint("  " + req.CurrentSQL))
	if req.Explanation != "" {
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("  " + req.Explanation))
	}
	ok, _ := pterm.DefaultInteractiveConfirm.
		WithDefaultValue(false).
		Show("Execute this statement?")
	return ok
}

// renderOutcome prints the terminal state of a finished request.
func renderOutcome(req *pipeline.Request) {
	switch req.Status {
	case pipeline.StatusSucceeded:
		pterm.Println()
		pterm.Println(pterm.NewStyle(pterm.FgLightGreen, pterm.Bold).Sprint("Answer"))
		pterm.Println(req.FinalAnswer)
		renderResult(req)
		pterm.Println()
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprintf("SQL: %s", req.CurrentSQL))
		if req.RetryCount > 0 {
			pterm.Println(pterm.NewStyle(pterm.FgGray).Sprintf("Corrections: %d", req.RetryCount))
		}
		if req.FromCache {
			pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("Result served from cache"))
		}
	case pipeline.StatusDenied:
		pterm.Println()
		pterm.Info.Println("Statement denied. Nothing was executed.")
	case pipeline.StatusFailed:
		pterm.Println()
		pterm.Printf("❌ %s\n", req.FailureSummary)
		for _, f := range req.ErrorLog {
			pterm.Println(pterm.NewStyle(pterm.FgGray).Sprintf("  [%s] %s", f.Stage, f.Message))
		}
	}
}

// renderResult prints rows as a table, truncated to maxRenderedRows.
func renderResult(req *pipeline.Request) {
	res := req.Result
	if res == nil {
		return
	}
	if res.HasRowsAffected {
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprintf("Rows affected: %d", res.RowsAffected))
		return
	}
	if len(res.Columns) == 0 {
		return
	}
	data := pterm.TableData{res.Columns}
	for i, row := range res.Rows {
		if i == maxRenderedRows {
			break
		}
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprintf("%v", v)
		}
		data = append(data, cells)
	}
	pterm.Println()
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	if len(res.Rows) > maxRenderedRows {
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprintf("… %d more row(s)", len(res.Rows)-maxRenderedRows))
	}
}

// renderEvent streams pipeline progress to the terminal.
func renderEvent(ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventCacheHit:
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("• cache hit"))
	case pipeline.EventRetrying:
		pterm.Println(pterm.NewStyle(pterm.FgLightYellow).Sprintf("↻ correcting (attempt %d)", ev.Attempt))
	}
}

// startInlineSpinner starts a simple inline spinner animation on a single
// line. The returned function stops the spinner and clears the line.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", frames[i%len(frames)], text)
				i++
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
	}
}

// renderCacheStats prints the shared cache counters.
func renderCacheStats(stats querycache.Stats) {
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint("Query cache"))
	data := pterm.TableData{
		{"Entries", fmt.Sprintf("%d", stats.Entries)},
		{"Bytes used", fmt.Sprintf("%d / %d", stats.BytesUsed, stats.Capacity)},
		{"Hits", fmt.Sprintf("%d", stats.Hits)},
		{"Misses", fmt.Sprintf("%d", stats.Misses)},
		{"Evictions", fmt.Sprintf("%d", stats.Evictions)},
	}
	if hr := stats.HitRate(); hr >= 0 {
		data = append(data, []string{"Hit rate", fmt.Sprintf("%.1f%%", hr*100)})
	}
	_ = pterm.DefaultTable.WithData(data).Render()
}
