package webgpu

import "fmt"

// recoverError turns a panic raised by the wgpu bindings into an error.
// The error is passed through wrap if it is not nil.
func recoverError(err *error, wrap func(error) error) {
	r := recover()
	if r == nil {
		return
	}

	recovered, ok := r.(error)
	if !ok {
		recovered = fmt.Errorf("%v", r)
	}

	if wrap != nil {
		recovered = wrap(recovered)
	}

	*err = recovered
}
