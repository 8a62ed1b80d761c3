// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppDataEnv is the Windows environment variable holding the roaming
// application-data directory.
const AppDataEnv = "APPDATA"

var (
	// ErrUnsupportedPlatform is the sentinel error wrapped by UnsupportedPlatformError.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrMissingEnv is the sentinel error wrapped by MissingEnvError.
	ErrMissingEnv = errors.New("required environment variable not set")
)

type (
	// Env captures the inputs the plugin root depends on. Production code
	// uses HostEnv; tests supply fixed values.
	Env struct {
		// GOOS is the operating system identifier (runtime.GOOS values).
		GOOS string
		// HomeDir returns the current user's home directory.
		HomeDir func() (string, error)
		// Getenv looks up an environment variable.
		Getenv func(string) string
	}

	// Host names the application whose plugin directory is resolved.
	Host struct {
		// Vendor is the vendor directory used on macOS and Windows.
		Vendor string
		// App is the application directory used on macOS and Windows.
		App string
		// LinuxApp is the application directory used on Linux, where the
		// vendor level is absent and the name carries no spaces.
		LinuxApp string
		// Subdir is the plugin subdirectory below the application directory.
		Subdir string
		// OverrideRoot, when non-empty, is returned as-is instead of the
		// platform table lookup.
		OverrideRoot string
	}

	// UnsupportedPlatformError is returned when the OS identifier has no
	// known plugin location.
	UnsupportedPlatformError struct {
		GOOS string
	}

	// MissingEnvError is returned when an environment variable required on
	// the current platform is unset or blank.
	MissingEnvError struct {
		Var  string
		GOOS string
	}
)

// DefaultHost returns the DaVinci Resolve Fusion layout.
func DefaultHost() Host {
	return Host{
		Vendor:   "Blackmagic Design",
		App:      "DaVinci Resolve",
		LinuxApp: "DaVinciResolve",
		Subdir:   "Fusion",
	}
}

// HostEnv returns an Env bound to the running process.
func HostEnv() Env {
	return Env{
		GOOS:    runtime.GOOS,
		HomeDir: os.UserHomeDir,
		Getenv:  os.Getenv,
	}
}

// Error implements the error interface.
func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("don't know how to locate the plugin root on this platform: %s", e.GOOS)
}

// Unwrap returns ErrUnsupportedPlatform for errors.Is.
func (e *UnsupportedPlatformError) Unwrap() error { return ErrUnsupportedPlatform }

// Error implements the error interface.
func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("environment variable %s must be set on %s", e.Var, e.GOOS)
}

// Unwrap returns ErrMissingEnv for errors.Is.
func (e *MissingEnvError) Unwrap() error { return ErrMissingEnv }

// PluginRoot returns the absolute directory where the host application looks
// for user plugins:
//
//	darwin   <home>/Library/Application Support/<Vendor>/<App>/<Subdir>
//	linux    <home>/.local/share/<LinuxApp>/<Subdir>
//	windows  <APPDATA>/<Vendor>/<App>/<Subdir>
//
// Any other OS yields an UnsupportedPlatformError.
func PluginRoot(env Env, host Host) (string, error) {
	if host.OverrideRoot != "" {
		return filepath.Clean(host.OverrideRoot), nil
	}

	switch env.GOOS {
	case Darwin:
		home, err := homeDir(env)
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", host.Vendor, host.App, host.Subdir), nil
	case Linux:
		home, err := homeDir(env)
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", host.LinuxApp, host.Subdir), nil
	case Windows:
		appData := ""
		if env.Getenv != nil {
			appData = strings.TrimSpace(env.Getenv(AppDataEnv))
		}
		if appData == "" {
			return "", &MissingEnvError{Var: AppDataEnv, GOOS: env.GOOS}
		}
		return filepath.Join(appData, host.Vendor, host.App, host.Subdir), nil
	default:
		return "", &UnsupportedPlatformError{GOOS: env.GOOS}
	}
}

func homeDir(env Env) (string, error) {
	if env.HomeDir == nil {
		return "", fmt.Errorf("no home directory lookup configured for %s", env.GOOS)
	}
	home, err := env.HomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if home == "" {
		return "", fmt.Errorf("home directory is empty on %s", env.GOOS)
	}
	return home, nil
}
