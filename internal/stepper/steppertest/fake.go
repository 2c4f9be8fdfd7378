// Package steppertest provides a scripted in-memory Stepper used by
// reconciler and command tests.
package steppertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/avelinec/hubsync/internal/stepper"
)

// Instance is one live connector instance held by the fake.
type Instance struct {
	Handle   string
	Platform string
	Answers  []map[string]any
	Options  []map[string]any
}

// Fake implements stepper.Stepper against in-memory state. Failures are
// injected per platform so tests can target individual integrations.
type Fake struct {
	mu          sync.Mutex
	nextHandle  int
	instances   map[string]*Instance
	beginErrs   map[string]error
	optionsErrs map[string]error
	noOptions   map[string]bool
	calls       []string
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		instances:   make(map[string]*Instance),
		beginErrs:   make(map[string]error),
		optionsErrs: make(map[string]error),
		noOptions:   make(map[string]bool),
	}
}

// FailBegin makes Begin fail for the given platform.
func (f *Fake) FailBegin(platform string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beginErrs[platform] = err
}

// FailUpdateOptions makes UpdateOptions fail for instances of platform.
func (f *Fake) FailUpdateOptions(platform string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.optionsErrs[platform] = err
}

// DisableOptions makes SupportsOptions report false for platform.
func (f *Fake) DisableOptions(platform string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noOptions[platform] = true
}

// RemoveOutOfBand deletes an instance directly, simulating removal through
// a different interface than the reconciler.
func (f *Fake) RemoveOutOfBand(handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.instances, handle)
}

// Instance returns the live instance for handle, if any.
func (f *Fake) Instance(handle string) (Instance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[handle]
	if !ok {
		return Instance{}, false
	}
	return *inst, true
}

// InstanceCount returns the number of live instances.
func (f *Fake) InstanceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.instances)
}

// Calls returns the ordered log of operations performed.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Begin creates a new instance for platform.
func (f *Fake) Begin(ctx context.Context, platform string, answers []map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &stepper.TransientError{Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "begin:"+platform)

	if err := f.beginErrs[platform]; err != nil {
		return "", err
	}

	f.nextHandle++
	handle := fmt.Sprintf("h-%d", f.nextHandle)
	f.instances[handle] = &Instance{
		Handle:   handle,
		Platform: platform,
		Answers:  answers,
	}
	return handle, nil
}

// Delete removes the instance for handle.
func (f *Fake) Delete(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return &stepper.TransientError{Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+handle)

	if _, ok := f.instances[handle]; !ok {
		return &stepper.NotFoundError{Handle: handle}
	}
	delete(f.instances, handle)
	return nil
}

// UpdateOptions patches the options of the instance for handle.
func (f *Fake) UpdateOptions(ctx context.Context, handle string, options []map[string]any) error {
	if err := ctx.Err(); err != nil {
		return &stepper.TransientError{Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update-options:"+handle)

	inst, ok := f.instances[handle]
	if !ok {
		return &stepper.NotFoundError{Handle: handle}
	}
	if err := f.optionsErrs[inst.Platform]; err != nil {
		return err
	}
	inst.Options = options
	return nil
}

// SupportsOptions reports the scripted options capability for the
// instance's platform. Unknown handles default to supported so creation
// flows exercise the options path.
func (f *Fake) SupportsOptions(ctx context.Context, handle string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &stepper.TransientError{Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "supports-options:"+handle)

	inst, ok := f.instances[handle]
	if !ok {
		return false, &stepper.NotFoundError{Handle: handle}
	}
	return !f.noOptions[inst.Platform], nil
}
