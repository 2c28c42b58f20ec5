package editor

import "beskar/editor/internal/doc"

const maxHistoryDepth = 100

type historyMode uint8

const (
	historyNormal historyMode = iota
	historyUndo
	historyRedo
)

const metaHistoryMode = "editor.historyMode"

// historyEntry holds the steps that revert one dispatch, in apply order.
type historyEntry struct {
	steps []doc.Step
}

type history struct {
	undo []historyEntry
	redo []historyEntry
}

func (h *history) record(mode historyMode, steps []doc.Step) {
	if len(steps) == 0 {
		return
	}
	entry := historyEntry{steps: steps}
	switch mode {
	case historyUndo:
		h.redo = append(h.redo, entry)
	case historyRedo:
		h.undo = pushBounded(h.undo, entry)
	default:
		h.undo = pushBounded(h.undo, entry)
		h.redo = nil
	}
}

func pushBounded(stack []historyEntry, entry historyEntry) []historyEntry {
	stack = append(stack, entry)
	if len(stack) > maxHistoryDepth {
		stack = stack[len(stack)-maxHistoryDepth:]
	}
	return stack
}

// rebase maps every stored entry through steps applied outside history.
// Entries whose ranges were touched by those steps are dropped.
func (h *history) rebase(through []doc.Step) int {
	var fromUndo, fromRedo int
	h.undo, fromUndo = rebaseStack(h.undo, through)
	h.redo, fromRedo = rebaseStack(h.redo, through)
	return fromUndo + fromRedo
}

func rebaseStack(stack []historyEntry, through []doc.Step) ([]historyEntry, int) {
	out := stack[:0]
	dropped := 0
	for _, entry := range stack {
		steps, ok := rebaseSteps(entry.steps, through)
		if !ok {
			dropped++
			continue
		}
		out = append(out, historyEntry{steps: steps})
	}
	return out, dropped
}

func rebaseSteps(steps []doc.Step, through []doc.Step) ([]doc.Step, bool) {
	out := make([]doc.Step, 0, len(steps))
	for _, s := range steps {
		mapped, ok := rebaseStep(s, through)
		if !ok {
			return nil, false
		}
		out = append(out, mapped)
	}
	return out, true
}

func rebaseStep(s doc.Step, through []doc.Step) (doc.Step, bool) {
	switch step := s.(type) {
	case doc.ReplaceStep:
		from, to := step.From, step.To
		for _, t := range through {
			from, to = t.Map(from, 1), t.Map(to, -1)
			if step.From == step.To {
				to = from
			}
		}
		if to-from != step.To-step.From {
			return nil, false
		}
		return doc.ReplaceStep{From: from, To: to, Nodes: step.Nodes}, true
	case doc.AttrStep:
		pos := step.Pos
		for _, t := range through {
			pos = t.Map(pos, 1)
		}
		return doc.AttrStep{Pos: pos, Kind: step.Kind, Attrs: step.Attrs}, true
	default:
		return nil, false
	}
}
