// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - Uint: Integer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// =============================================================================
// Integer-Getter
// =============================================================================

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// =============================================================================
// Export-Strukturen und -Funktionen
// =============================================================================

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"ORT_LIB_PATH":           {"ORT_LIB_PATH", LibraryPath(), "Path of the ONNX Runtime shared library"},
		"ORT_DEBUG":              {"ORT_DEBUG", LogLevel(), "Show additional debug information (e.g. ORT_DEBUG=1)"},
		"ORT_LOG_SEVERITY":       {"ORT_LOG_SEVERITY", LogSeverity(), "Minimum severity of native engine log messages (default: warning)"},
		"ORT_ENV_NAME":           {"ORT_ENV_NAME", EnvName(), "Name of the process-wide environment (default: default)"},
		"ORT_API_VERSION":        {"ORT_API_VERSION", APIVersion(), "Requested OrtApi version (default: 14)"},
		"ORT_INTRA_OP_THREADS":   {"ORT_INTRA_OP_THREADS", IntraOpThreads(), "Threads used inside an operator (0: engine default)"},
		"ORT_INTER_OP_THREADS":   {"ORT_INTER_OP_THREADS", InterOpThreads(), "Threads used across operators (0: engine default)"},
		"ORT_GRAPH_OPTIMIZATION": {"ORT_GRAPH_OPTIMIZATION", GraphOptimization(), "Graph optimization level: disable, basic, extended, all"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
