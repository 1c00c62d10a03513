package squooshkit

import "github.com/bnowak008/squoosh-kit-sub000/errors"

// Mode selects where a bridge executes codec operations. The mode is fixed
// when the bridge is constructed and never changes afterwards.
type Mode string

const (
	// ModeWorker dispatches operations to a dedicated background goroutine
	// owning its own module instance.
	ModeWorker Mode = "worker"

	// ModeClient runs the codec module directly in the calling goroutine.
	ModeClient Mode = "client"
)

// Validate rejects anything other than the two defined modes.
func (m Mode) Validate() error {
	switch m {
	case ModeWorker, ModeClient:
		return nil
	}
	return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
		Path("mode").
		Value(string(m)).
		Detail("mode must be %q or %q, got %q", ModeWorker, ModeClient, m).
		Build()
}
