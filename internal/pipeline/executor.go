// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

import (
	"context"

	"go.uber.org/zap"

	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/querycache"
	"sqlpilot/cli/internal/sqlparse"
)

// execute runs the current statement, consulting the query cache for
// read-only statements first. Mutations bypass the cache entirely: serving a
// write from cache would silently skip the write, and storing one would
// replay stale affected-row counts.
func (o *Orchestrator) execute(ctx context.Context, req *Request) Decision {
	req.FromCache = false
	cacheable := !sqlparse.IsWrite(req.CurrentSQL)

	var fp querycache.Fingerprint
	if cacheable && o.cache != nil {
		fp = querycache.ComputeFingerprint(req.Dialect, sqlparse.Normalize(req.CurrentSQL))
		if res, ok := o.cache.Lookup(fp); ok {
			req.Result = res
			req.FromCache = true
			o.logger.Debug("cache hit",
				zap.String("request_id", req.ID),
				zap.String("fingerprint", fp.String()))
			o.emit(Event{
				Type:      EventCacheHit,
				RequestID: req.ID,
				Node:      NodeExecute,
				Attempt:   req.RetryCount,
			})
			return DecisionExecuted
		}
	}

	res, err := o.gw.Execute(ctx, req.CurrentSQL)
	if err != nil {
		kind := errors.GetKind(err)
		req.recordFailure(string(NodeExecute), kind, err.Error())
		if errors.Recoverable(err) {
			o.logger.Debug("execution failed, recoverable",
				zap.String("request_id", req.ID), zap.Error(err))
			return DecisionExecFailed
		}
		req.fail("execution failed fatally: " + err.Error())
		return DecisionFatal
	}

	req.Result = res
	if cacheable && o.cache != nil {
		o.cache.Insert(fp, res)
	}
	return DecisionExecuted
}
