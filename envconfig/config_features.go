// config_features.go - Session-Konfiguration
//
// Dieses Modul enthaelt:
// - Thread-Einstellungen fuer Sessions
// - Graph-Optimierungsstufe
package envconfig

import (
	"log/slog"
	"strings"
)

// =============================================================================
// Thread-Einstellungen
// =============================================================================

var (
	// IntraOpThreads setzt die Threads innerhalb eines Operators
	// Konfigurierbar via ORT_INTRA_OP_THREADS, 0 = Engine-Default
	IntraOpThreads = Uint("ORT_INTRA_OP_THREADS", 0)

	// InterOpThreads setzt die Threads zwischen Operatoren
	// Konfigurierbar via ORT_INTER_OP_THREADS, 0 = Engine-Default
	InterOpThreads = Uint("ORT_INTER_OP_THREADS", 0)
)

// =============================================================================
// Graph-Optimierung
// =============================================================================

// GraphOptimization gibt die Graph-Optimierungsstufe zurueck
// Konfigurierbar via ORT_GRAPH_OPTIMIZATION (disable, basic, extended, all)
// Default: all
func GraphOptimization() string {
	s := strings.ToLower(Var("ORT_GRAPH_OPTIMIZATION"))
	switch s {
	case "":
		return "all"
	case "disable", "basic", "extended", "all":
		return s
	default:
		slog.Warn("invalid environment variable, using default", "key", "ORT_GRAPH_OPTIMIZATION", "value", s, "default", "all")
		return "all"
	}
}
