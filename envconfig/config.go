// config.go - Haupt-Konfigurationsfunktionen fuer die ONNX-Runtime-Bindings
//
// Dieses Modul enthaelt:
// - LibraryPath: Pfad der Shared Library (ORT_LIB_PATH)
// - LogLevel: Host-Log-Level (ORT_DEBUG)
// - LogSeverity: Log-Level der nativen Engine (ORT_LOG_SEVERITY)
// - EnvName: Standard-Name des Environments (ORT_ENV_NAME)
// - APIVersion: Angeforderte OrtApi-Version (ORT_API_VERSION)
//
// Weitere Konfigurationen sind ausgelagert:
// - config_features.go: Session-Einstellungen (Threads, Graph-Optimierung)
// - config_utils.go: Utility-Funktionen und AsMap/Values
package envconfig

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// LibraryPath gibt den Pfad der ONNX-Runtime-Library zurueck
// Konfigurierbar via ORT_LIB_PATH
// Default: plattformspezifischer Dateiname, aufgeloest vom dynamischen Linker
func LibraryPath() string {
	if s := Var("ORT_LIB_PATH"); s != "" {
		return s
	}

	return LibraryFilename()
}

// LibraryFilename gibt den plattformspezifischen Dateinamen der Library zurueck
func LibraryFilename() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

// LogLevel gibt das Log-Level des Hosts zurueck
// Konfigurierbar via ORT_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("ORT_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// LogSeverity gibt das Log-Level der nativen Engine als Namen zurueck
// Konfigurierbar via ORT_LOG_SEVERITY (verbose, info, warning, error, fatal oder 0-4)
// Default: warning
func LogSeverity() string {
	s := strings.ToLower(Var("ORT_LOG_SEVERITY"))
	switch s {
	case "":
		return "warning"
	case "verbose", "info", "warning", "error", "fatal":
		return s
	case "0", "1", "2", "3", "4":
		return []string{"verbose", "info", "warning", "error", "fatal"}[s[0]-'0']
	default:
		slog.Warn("invalid environment variable, using default", "key", "ORT_LOG_SEVERITY", "value", s, "default", "warning")
		return "warning"
	}
}

// EnvName gibt den Standard-Namen des Environments zurueck
// Konfigurierbar via ORT_ENV_NAME
// Default: default
func EnvName() string {
	if s := Var("ORT_ENV_NAME"); s != "" {
		return s
	}

	return "default"
}

// APIVersion gibt die angeforderte OrtApi-Version zurueck
// Konfigurierbar via ORT_API_VERSION
// Default: 14 (aelteste Version mit allen benutzten Einstiegspunkten)
var APIVersion = Uint("ORT_API_VERSION", 14)

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
