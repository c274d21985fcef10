package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/ai"
)

// ErrInternal covers a broken invariant mid-turn. The failed turn rolls
// back to its entry snapshot and the session stays usable.
var ErrInternal = errors.New("internal turn error")

// RunTurn executes one player action through the full pipeline and commits
// the resulting state. On error nothing is committed: validation errors
// never touch state, and a turn that dies mid-flight restores its snapshot.
func (rt *Runtime) RunTurn(ctx context.Context, action Action) (*TurnResult, error) {
	return rt.run(ctx, action, func(StreamEvent) {})
}

// RunTurnStream is RunTurn with progress frames: the action summary first,
// narrative chunks while the Writer streams, one checker status, then the
// complete result. The committed state is identical to RunTurn's for the
// same action and seed.
func (rt *Runtime) RunTurnStream(ctx context.Context, action Action, emit func(StreamEvent)) (*TurnResult, error) {
	if emit == nil {
		emit = func(StreamEvent) {}
	}
	res, err := rt.run(ctx, action, emit)
	if err != nil {
		return nil, err
	}
	emit(StreamEvent{Type: StreamComplete, Result: res})
	return res, nil
}

func (rt *Runtime) run(ctx context.Context, action Action, emit func(StreamEvent)) (result *TurnResult, err error) {
	if err := validateAction(action); err != nil {
		return nil, err
	}
	if rt.Ended() {
		return nil, ErrSessionEnded
	}

	tc := &turnCtx{
		action:      action,
		skipAI:      action.SkipAI || rt.ai == nil,
		gates:       map[string]bool{},
		meterDeltas: map[string]float64{},
		hooksRun:    map[string]bool{},
		warned:      map[string]bool{},
	}
	if action.Type == ActChoice {
		tc.choice, tc.actionDef = rt.findChoice(action.ChoiceID)
		if tc.choice == nil && tc.actionDef == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChoice, action.ChoiceID)
		}
	}

	tc.snapshot = rt.st.Clone()
	tc.turn = rt.st.TurnCount + 1
	tc.rng = rand.New(rand.NewSource(rt.st.BaseRNGSeed + int64(tc.turn)))
	rt.st.TurnCount = tc.turn

	defer func() {
		if r := recover(); r != nil {
			rt.rollback(tc)
			rt.log.Error("turn panicked",
				zap.Int("turn", tc.turn),
				zap.String("action", action.Type),
				zap.Any("panic", r),
				zap.Stack("stack"))
			result, err = nil, fmt.Errorf("%w: turn %d", ErrInternal, tc.turn)
		}
	}()

	rt.resolvePresence(tc)
	rt.evaluateGates(tc)

	tc.actionSummary = rt.formatActionSummary(tc)
	emit(StreamEvent{Type: StreamActionSummary, Text: tc.actionSummary})

	if !tc.skipAI {
		rt.runPendingNodeEntry(tc)
	}

	rt.dispatchAction(tc)
	rt.runEvents(tc)

	// A forced event transition preempts the Writer entirely; the event's
	// beats carry the turn instead.
	if !tc.skipAI && !tc.forced {
		if aerr := rt.runAIPhases(ctx, tc, emit); aerr != nil {
			rt.rollback(tc)
			return nil, aerr
		}
	}

	rt.resolveNodeTransitions(tc)
	rt.autoActivateModifiers(tc)
	rt.runDiscovery(tc)
	rt.advanceClock(tc, tc.minutes)
	rt.advanceArcs(tc)

	narrative := rt.finalNarrative(tc)
	entry := tc.actionSummary
	if narrative != "" {
		entry += "\n" + narrative
	}
	rt.st.PushNarrative(entry)
	rt.st.TurnsInNode++

	res := &TurnResult{
		Turn:              tc.turn,
		Narrative:         narrative,
		ActionSummary:     tc.actionSummary,
		Choices:           rt.buildChoices(tc),
		EventsFired:       tc.eventsFired,
		MilestonesReached: tc.milestones,
		AIFailed:          tc.aiFailed,
		Ended:             rt.Ended(),
	}
	res.StateSummary = rt.buildSummary(tc)

	rt.log.Debug("turn committed",
		zap.Int("turn", tc.turn),
		zap.String("action", action.Type),
		zap.String("node", rt.st.CurrentNode),
		zap.Int("minutes", tc.minutes),
		zap.Strings("events", tc.eventsFired),
		zap.Bool("ai_failed", tc.aiFailed))
	return res, nil
}

// runAIPhases drives the envelope, Writer, Checker, narrative
// reconciliation and checker delta application. A missed deadline degrades
// the turn (ai_failed, deterministic effects keep); caller cancellation
// aborts it and the caller rolls back.
func (rt *Runtime) runAIPhases(ctx context.Context, tc *turnCtx, emit func(StreamEvent)) error {
	env := rt.buildEnvelope(tc)

	wctx, cancel := context.WithTimeout(ctx, rt.opts.WriterDeadline)
	raw, werr := rt.ai.GenerateStream(wctx, ai.BuildWriterRequest(env), func(chunk string) {
		emit(StreamEvent{Type: StreamNarrativeChunk, Text: chunk})
	})
	cancel()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if werr != nil {
		rt.log.Warn("writer failed, turn commits without prose",
			zap.Int("turn", tc.turn), zap.Error(werr))
		tc.aiFailed = true
		return nil
	}

	res := rt.runChecker(ctx, tc, env, raw, emit)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	tc.prose = reconcileNarrative(raw)
	if tc.prose != "" {
		tc.parts = append(tc.parts, tc.prose)
	}

	if res != nil {
		tc.checker = res
		rt.applyChecker(tc, res)
	}

	rt.st.AITurnsSinceSummary++
	if res != nil && res.NarrativeSummary != "" {
		rt.st.NarrativeSummary = res.NarrativeSummary
		rt.st.AITurnsSinceSummary = 0
	}
	return nil
}

// runChecker calls the Checker and parses its verdict. A malformed reply
// gets exactly one retry with the correction directive appended; timeouts
// and transport errors do not retry. nil means the turn keeps only its
// deterministic effects.
func (rt *Runtime) runChecker(ctx context.Context, tc *turnCtx, env ai.Envelope, prose string, emit func(StreamEvent)) *ai.CheckerResult {
	req := ai.BuildCheckerRequest(env, prose)
	for attempt := 1; attempt <= 2; attempt++ {
		if attempt > 1 {
			req.User += ai.CheckerRetryDirective
		}
		cctx, cancel := context.WithTimeout(ctx, rt.opts.CheckerDeadline)
		raw, err := rt.ai.Generate(cctx, req)
		cancel()
		if err != nil {
			if ctx.Err() == nil {
				rt.log.Warn("checker call failed",
					zap.Int("turn", tc.turn), zap.Error(err))
			}
			break
		}
		res, perr := ai.ParseChecker(raw)
		if perr != nil {
			rt.log.Warn("checker reply malformed",
				zap.Int("turn", tc.turn),
				zap.Int("attempt", attempt),
				zap.Error(perr))
			continue
		}
		emit(StreamEvent{Type: StreamCheckerStatus, Text: "ok"})
		return res
	}
	tc.aiFailed = true
	emit(StreamEvent{Type: StreamCheckerStatus, Text: "failed"})
	return nil
}

// finalNarrative joins refusal lines and prose in the order the turn
// produced them. A turn that ends proseless surfaces its event beats so a
// deterministic turn still reads as something happening.
func (rt *Runtime) finalNarrative(tc *turnCtx) string {
	parts := tc.parts
	if tc.prose == "" && len(tc.beats) > 0 {
		parts = append(parts, tc.beats...)
	}
	return strings.Join(parts, "\n\n")
}

// reconcileNarrative strips state language the Writer is told never to
// emit: a wrapping markdown fence and any trailing JSON object.
func reconcileNarrative(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		body := strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		if end := strings.LastIndex(body, "```"); end >= 0 {
			body = body[:end]
		}
		s = strings.TrimSpace(body)
	}
	if open := strings.IndexByte(s, '{'); open >= 0 {
		tail := strings.TrimSpace(s[open:])
		if strings.HasSuffix(tail, "}") && json.Valid([]byte(tail)) {
			s = strings.TrimSpace(s[:open])
		}
	}
	return s
}

// rollback restores the turn-entry snapshot, discarding every partial write
// of the failed turn. The snapshot is a deep clone, so reassigning the
// struct re-points all nested maps at fresh copies.
func (rt *Runtime) rollback(tc *turnCtx) {
	*rt.st = *tc.snapshot
}
