// SPDX-License-Identifier: MPL-2.0

// Package config loads the fusionkit project configuration.
//
// The project file is fusionkit.cue in the project directory. It is validated
// against an embedded CUE schema (config_schema.cue), merged into Viper over
// built-in defaults, and can be overridden per key through FUSIONKIT_*
// environment variables. An optional .env file next to the project file is
// loaded first without replacing variables that are already set.
//
// A loaded Config is an immutable snapshot; consumers receive it by value or
// pointer and never mutate it.
package config
