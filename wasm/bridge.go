//go:build js && wasm

package wasm

import (
	"fmt"
	"syscall/js"
)

// Promise runs fn on a goroutine and returns a JavaScript Promise that
// resolves with its result or rejects with its error message.
func Promise(fn func() (interface{}, error)) js.Value {
	handler := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolve := args[0]
		reject := args[1]

		go func() {
			result, err := fn()
			if err != nil {
				reject.Invoke(js.ValueOf(err.Error()))
				return
			}
			resolve.Invoke(js.ValueOf(result))
		}()

		return nil
	})

	promiseConstructor := js.Global().Get("Promise")
	return promiseConstructor.New(handler)
}

// StringArgs returns one string per name. Missing or non-string arguments
// are an error naming the expected parameters.
func StringArgs(args []js.Value, names ...string) ([]string, error) {
	if len(args) < len(names) {
		return nil, fmt.Errorf("expected %d arguments: %v", len(names), names)
	}

	out := make([]string, len(names))
	for i := range names {
		if args[i].Type() != js.TypeString {
			return nil, fmt.Errorf("argument %s must be a string", names[i])
		}
		out[i] = args[i].String()
	}
	return out, nil
}
