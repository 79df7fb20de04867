package fsm

import (
	"errors"

	"github.com/looplab/fsm"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// The transition tables name every edge event after its destination state,
// so validating old -> new is firing the event named after the new state.
func validate(events fsm.Events, entityID, old, new string) error {
	f := fsm.NewFSM(old, events, nil)

	err := f.Event(new)
	if err == nil {
		return nil
	}

	if errors.As(err, &fsm.InvalidEventError{}) || errors.As(err, &fsm.UnknownEventError{}) {
		return &inventory.InvalidTransitionError{
			EntityID: entityID,
			Old:      old,
			New:      new,
		}
	}

	return inventory.Internal(err, "unable to validate transition from %q to %q", old, new)
}

func stateNames(events fsm.Events) []string {
	seen := map[string]bool{}
	var res []string

	for _, e := range events {
		for _, s := range append(e.Src, e.Dst) {
			if seen[s] {
				continue
			}
			seen[s] = true
			res = append(res, s)
		}
	}

	return res
}
