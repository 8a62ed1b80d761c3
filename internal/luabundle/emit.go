// SPDX-License-Identifier: MPL-2.0

package luabundle

import (
	"bytes"
	"fmt"
	"strings"
)

// shim is the runtime prepended to every bundle. Loaders receive the bundle's
// require as their first argument, so module bodies that call require are
// served from the in-memory table; names not in the table fall through to
// the host interpreter's require.
const shim = `local __bundle_require, __bundle_register, __bundle_modules
do
	local host_require = require
	local modules, loaded, loading = {}, {}, {}
	__bundle_modules = modules
	__bundle_register = function(name, loader)
		if modules[name] == nil then
			modules[name] = loader
		end
	end
	__bundle_require = function(name)
		local value = loaded[name]
		if value ~= nil then
			if value == loading then
				error("loop or previous error loading module '" .. tostring(name) .. "'", 2)
			end
			return value
		end
		local loader = modules[name]
		if loader == nil then
			if host_require == nil then
				error("module '" .. tostring(name) .. "' is not bundled", 2)
			end
			return host_require(name)
		end
		loaded[name] = loading
		local ok, result = pcall(loader, __bundle_require, name)
		if not ok then
			loaded[name] = nil
			error(result, 0)
		end
		if result == nil then
			result = true
		end
		loaded[name] = result
		return result
	end
end
`

// emit renders the bundle: header, shim, one loader per module (entry last),
// aliases, then the call running the entry module with the script's varargs.
func emit(modules []*Module, entry string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "-- Bundled from %s. Generated file, do not edit.\n", sanitizeComment(entry))
	buf.WriteString(shim)

	var root *Module
	for _, m := range modules {
		if m.Name == RootModuleName {
			root = m
		}
		fmt.Fprintf(&buf, "__bundle_register(%s, function(require, ...)\n", luaQuote(m.Name))
		buf.Write(m.source)
		if len(m.source) > 0 && m.source[len(m.source)-1] != '\n' {
			buf.WriteByte('\n')
		}
		buf.WriteString("end)\n")
	}
	if root == nil {
		return nil, fmt.Errorf("bundle has no entry module")
	}

	for _, m := range modules {
		for _, alias := range m.Aliases {
			fmt.Fprintf(&buf, "__bundle_register(%s, function(require) return require(%s) end)\n",
				luaQuote(alias), luaQuote(m.Name))
		}
	}

	fmt.Fprintf(&buf, "return __bundle_modules[%s](__bundle_require, ...)\n", luaQuote(RootModuleName))
	return buf.Bytes(), nil
}

// luaQuote renders s as a double-quoted Lua 5.1 string literal.
func luaQuote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c < 0x20 || c == 0x7f:
			// Three digits so a following digit is not absorbed.
			fmt.Fprintf(&sb, `\%03d`, c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func sanitizeComment(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
