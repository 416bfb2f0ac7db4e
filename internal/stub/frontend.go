package stub

import (
	"encoding/json"
	"sync"

	"github.com/johnhenry/ai.matey-sub001/pkg/frontends"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// Frontend is the native frontend with scriptable failures layered on
// top. Unscripted calls behave exactly like frontends.Native.
type Frontend struct {
	*frontends.Native

	mu        sync.Mutex
	toIRErr   error
	fromIRErr error
}

// NewFrontend creates a stub frontend.
func NewFrontend() *Frontend {
	return &Frontend{Native: frontends.NewNative()}
}

// FailToIR makes every subsequent ToIR call fail with err. Nil restores
// normal parsing.
func (f *Frontend) FailToIR(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toIRErr = err
}

// FailFromIR makes every subsequent FromIR call fail with err.
func (f *Frontend) FailFromIR(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fromIRErr = err
}

// ToIR implements frontends.Frontend.
func (f *Frontend) ToIR(data json.RawMessage) (*ir.ChatRequest, error) {
	f.mu.Lock()
	err := f.toIRErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Native.ToIR(data)
}

// FromIR implements frontends.Frontend.
func (f *Frontend) FromIR(resp *ir.ChatResponse) (json.RawMessage, error) {
	f.mu.Lock()
	err := f.fromIRErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Native.FromIR(resp)
}
