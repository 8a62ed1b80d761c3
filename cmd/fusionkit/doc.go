// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the fusionkit CLI.
//
// The command tree is the project's task surface: build (the default),
// clean, install, uninstall, watch, lint and test, plus init and config
// show. Every handler loads the project configuration through the App and
// delegates the work to the internal build, install and watch packages.
package cmd
