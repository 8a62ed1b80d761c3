// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

// Catalog identifiers. Values start at 1 so the zero Id means "no issue".
const (
	ConfigLoadFailedId Id = iota + 1
	ToolNotFoundId
	ToolFailedId
	HostNotSupportedId
	AppDataMissingId
	EntryNotFoundId
	ModuleNotFoundId
	DynamicRequireId
	LuaSyntaxErrorId
	UnknownRecipeId
	InvalidOutputPathId
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is Markdown text rendered to the terminal.
	MarkdownMsg string

	// HttpLink is a documentation URL listed under an issue.
	HttpLink string

	// Issue is a catalog entry with longer remediation guidance.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the project configuration!

` + "`fusionkit.cue`" + ` is validated against the built-in schema before use.

## Things you can try:
- Print the effective configuration:
~~~
$ fusionkit config show
~~~
- Write a fresh default file and compare:
~~~
$ fusionkit init --force
~~~
- Environment overrides use the ` + "`FUSIONKIT_`" + ` prefix, for example
  ` + "`FUSIONKIT_HOST_PLUGIN_ROOT`" + `.`,
	}

	toolNotFoundIssue = &Issue{
		id: ToolNotFoundId,
		mdMsg: `
# A required tool is not installed!

Linting uses **luacheck** and the test suite runs under **luajit** by default.

## Things you can try:
- Install the tools with your package manager or LuaRocks:
~~~
$ luarocks install luacheck
~~~
- Point the configuration at a different binary:
~~~cue
lint: tool: "/opt/lua/bin/luacheck"
test: interpreter: "luajit"
~~~
- Build without linting:
~~~
$ fusionkit build --skip-lint
~~~`,
		extLinks: []HttpLink{"https://github.com/lunarmodules/luacheck", "https://luajit.org/install.html"},
	}

	toolFailedIssue = &Issue{
		id: ToolFailedId,
		mdMsg: `
# An external tool reported a failure!

The tool's own output above describes what went wrong. fusionkit exits
with the same status code.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to see the full command line
- Run the linter alone, accepting warnings:
~~~
$ fusionkit lint --permissive
~~~`,
	}

	hostNotSupportedIssue = &Issue{
		id: HostNotSupportedId,
		mdMsg: `
# This operating system is not supported!

DaVinci Resolve plugins can be installed on macOS, Linux and Windows only.

## Things you can try:
- Set an explicit plugin directory:
~~~cue
host: plugin_root: "/path/to/Fusion"
~~~`,
	}

	appDataMissingIssue = &Issue{
		id: AppDataMissingId,
		mdMsg: `
# APPDATA is not set!

On Windows the Fusion plugin directory lives under ` + "`%APPDATA%`" + `.

## Things you can try:
- Run from a regular user session where APPDATA is defined
- Add it to the project's ` + "`.env`" + ` file:
~~~
APPDATA=C:\Users\me\AppData\Roaming
~~~`,
	}

	entryNotFoundIssue = &Issue{
		id: EntryNotFoundId,
		mdMsg: `
# The entry script does not exist!

Each distributable names an entry file relative to the source directory.

## Things you can try:
- Check ` + "`project.src_dir`" + ` and the ` + "`entry`" + ` of each distributable:
~~~
$ fusionkit config show
~~~`,
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# A required Lua module could not be found!

Module names are resolved against ` + "`project.search_paths`" + `, where dots
become directory separators: ` + "`ui.window`" + ` matches ` + "`lib/ui/window.lua`" + `.

## Things you can try:
- Add the directory holding the module to the search paths:
~~~cue
project: search_paths: ["lib/?.lua", "lib/?/init.lua"]
~~~
- Declare modules provided by the host as externals:
~~~cue
project: externals: ["ffi", "bit"]
~~~`,
	}

	dynamicRequireIssue = &Issue{
		id: DynamicRequireId,
		mdMsg: `
# A require with a computed module name was found!

Only string literals can be bundled. With ` + "`--strict`" + ` this is an error.

## Things you can try:
- Replace ` + "`require(name)`" + ` with explicit ` + "`require(\"...\")`" + ` calls
- Build without ` + "`--strict`" + ` to keep the call as a warning`,
	}

	luaSyntaxErrorIssue = &Issue{
		id: LuaSyntaxErrorId,
		mdMsg: `
# A Lua file has a syntax error!

fusionkit parses sources with the Lua 5.1 grammar shared by LuaJIT.

## Things you can try:
- Fix the reported line and build again
- Run the linter for more context:
~~~
$ fusionkit lint
~~~`,
	}

	unknownRecipeIssue = &Issue{
		id: UnknownRecipeId,
		mdMsg: `
# Unknown distributable kind!

The only supported kind is ` + "`bundle`" + `.

~~~cue
distributables: [{output: "Scripts/Utility/Tool.lua", kind: "bundle", entry: "main.lua"}]
~~~`,
	}

	invalidOutputPathIssue = &Issue{
		id: InvalidOutputPathId,
		mdMsg: `
# Invalid distributable output path!

Outputs are relative to the staging directory and the plugin root. Absolute
paths, ` + "`..`" + ` segments and Windows reserved names are rejected.`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		toolNotFoundIssue.Id():      toolNotFoundIssue,
		toolFailedIssue.Id():        toolFailedIssue,
		hostNotSupportedIssue.Id():  hostNotSupportedIssue,
		appDataMissingIssue.Id():    appDataMissingIssue,
		entryNotFoundIssue.Id():     entryNotFoundIssue,
		moduleNotFoundIssue.Id():    moduleNotFoundIssue,
		dynamicRequireIssue.Id():    dynamicRequireIssue,
		luaSyntaxErrorIssue.Id():    luaSyntaxErrorIssue,
		unknownRecipeIssue.Id():     unknownRecipeIssue,
		invalidOutputPathIssue.Id(): invalidOutputPathIssue,
	}
)

// Id returns the catalog identifier.
func (i *Issue) Id() Id {
	return i.id
}

// MarkdownMsg returns the unrendered guidance.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// DocLinks returns a copy of the documentation links.
func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// ExtLinks returns a copy of the external links.
func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guidance with a glamour style such as "dark" or "notty".
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			md += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			md += "\n- <" + string(link) + ">"
		}
	}
	return render(md, stylePath)
}

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	all := maps.Values(issues)
	slices.SortFunc(all, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return all
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
