// SPDX-License-Identifier: MPL-2.0

package luabundle

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Verify compiles a produced bundle without running it, catching output that
// the target interpreter would refuse to load.
func Verify(src []byte, name string) (err error) {
	chunk, err := parseChunk(src, name)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = &ParseError{File: name, Err: fmt.Errorf("compiler panic: %v", r)}
		}
	}()
	if _, err := lua.Compile(chunk, name); err != nil {
		return &ParseError{File: name, Err: err}
	}
	return nil
}
