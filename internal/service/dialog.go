package service

import (
	"errors"
	"sync"

	"carbook/internal/models"
)

var ErrOperationInFlight = errors.New("another operation is in progress")

type DialogState string

const (
	DialogIdle     DialogState = "idle"
	DialogCreating DialogState = "creating"
	DialogUpdating DialogState = "updating"
	DialogDeleting DialogState = "deleting"
)

// Dialog allows at most one mutating operation at a time. Every operation
// returns the dialog to idle, whatever its outcome.
type Dialog struct {
	mu    sync.Mutex
	state DialogState
}

func NewDialog() *Dialog {
	return &Dialog{state: DialogIdle}
}

func (d *Dialog) State() DialogState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dialog) begin(op DialogState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DialogIdle {
		return ErrOperationInFlight
	}
	d.state = op
	return nil
}

func (d *Dialog) finish() {
	d.mu.Lock()
	d.state = DialogIdle
	d.mu.Unlock()
}

// Run executes fn in state op. A call made while another operation is running
// fails with ErrOperationInFlight without calling fn.
func (d *Dialog) Run(op DialogState, fn func() models.Response) (models.Response, error) {
	if op == DialogIdle {
		return models.Response{}, errors.New("dialog: idle is not an operation")
	}
	if err := d.begin(op); err != nil {
		return models.Failure(models.MsgOperationActive), err
	}
	defer d.finish()
	return fn(), nil
}

type dialogKey struct {
	userID int64
	carID  int64
}

// DialogRegistry hands out one Dialog per (user, car) pair so concurrent
// requests from the same user on the same car share a state machine.
type DialogRegistry struct {
	mu      sync.Mutex
	dialogs map[dialogKey]*Dialog
}

func NewDialogRegistry() *DialogRegistry {
	return &DialogRegistry{dialogs: make(map[dialogKey]*Dialog)}
}

func (r *DialogRegistry) Get(userID, carID int64) *Dialog {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := dialogKey{userID, carID}
	d, ok := r.dialogs[key]
	if !ok {
		d = NewDialog()
		r.dialogs[key] = d
	}
	return d
}

// State reports the state of the (user, car) dialog without creating one.
func (r *DialogRegistry) State(userID, carID int64) DialogState {
	r.mu.Lock()
	d, ok := r.dialogs[dialogKey{userID, carID}]
	r.mu.Unlock()
	if !ok {
		return DialogIdle
	}
	return d.State()
}
