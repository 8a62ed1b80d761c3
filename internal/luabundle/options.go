// SPDX-License-Identifier: MPL-2.0

package luabundle

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// PolicyWarn records non-literal requires as warnings and still emits a bundle.
	PolicyWarn Policy = iota
	// PolicyAbort fails the bundle on the first non-literal require.
	PolicyAbort
)

const (
	// DialectLuaJIT targets LuaJIT, the interpreter embedded in Fusion.
	DialectLuaJIT Dialect = "LuaJIT"
	// DialectLua51 targets PUC Lua 5.1.
	DialectLua51 Dialect = "5.1"
)

var (
	// ErrInvalidPolicy is returned by ParsePolicy for unknown names.
	ErrInvalidPolicy = errors.New("invalid dynamic require policy")
	// ErrUnsupportedDialect is returned when a Dialect cannot be parsed.
	ErrUnsupportedDialect = errors.New("unsupported Lua dialect")
)

type (
	// Policy decides what a non-literal require does to a bundle.
	Policy int

	// Dialect tags the Lua flavour the bundle targets. The parser accepts
	// the Lua 5.1 grammar, which LuaJIT shares.
	Dialect string

	// Options configure one Bundle call.
	Options struct {
		// BaseDir anchors relative search path templates. Empty means the
		// directory containing the entry file.
		BaseDir string
		// SearchPaths are package.path style templates such as "lib/?.lua".
		// Dots in a module name become path separators before substitution.
		SearchPaths []string
		// Policy handles non-literal requires.
		Policy Policy
		// Dialect is the target interpreter flavour. Empty means LuaJIT.
		Dialect Dialect
		// Externals are module names left to the host interpreter's require.
		Externals []string
	}
)

// ParsePolicy maps "warn" and "abort" (case-insensitive) to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warn", "":
		return PolicyWarn, nil
	case "abort", "strict", "error":
		return PolicyAbort, nil
	default:
		return PolicyWarn, fmt.Errorf("%w: %q (expected warn or abort)", ErrInvalidPolicy, s)
	}
}

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyWarn:
		return "warn"
	case PolicyAbort:
		return "abort"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Validate reports whether the dialect can be parsed.
func (d Dialect) Validate() error {
	switch d {
	case DialectLuaJIT, DialectLua51, "":
		return nil
	default:
		return fmt.Errorf("%w: %q (expected %s or %s)", ErrUnsupportedDialect, string(d), DialectLuaJIT, DialectLua51)
	}
}

func (d Dialect) orDefault() Dialect {
	if d == "" {
		return DialectLuaJIT
	}
	return d
}
