package validation

import "github.com/kasuganosora/datagrid/internal/model"

// ScheduleInput carries the signals the smart-scheduling decision needs
// (spec §4.3 "Smart scheduling"): how the validation request arose, how
// many rows it touches, and whether the user is mid-keystroke.
type ScheduleInput struct {
	Trigger        model.ValidationTrigger
	AffectedRows   int
	IsTyping       bool
	BulkThreshold  int // affected-row count at/above which a request is routed to Bulk
}

// Decide chooses RealTime or Bulk scheduling for a validation request.
// Paste and Import, or any request whose affected-row count reaches
// BulkThreshold, route to Bulk regardless of trigger, since large batches
// should run through the worker-pool path rather than the per-keystroke
// path. A small CellEdit/RowEdit only takes the synchronous RealTime lane
// when the user is not actively typing; while typing, it defers to Bulk so
// the caller's debounce timer coalesces keystrokes instead of evaluating on
// every one (spec §4.3 "Real-time: ... not typing").
func Decide(in ScheduleInput) model.ValidationMode {
	threshold := in.BulkThreshold
	if threshold <= 0 {
		threshold = 50
	}

	switch in.Trigger {
	case model.TriggerPaste, model.TriggerImport:
		return model.ModeBulk
	}

	if in.AffectedRows >= threshold {
		return model.ModeBulk
	}

	if in.IsTyping {
		return model.ModeBulk
	}

	return model.ModeRealTime
}
