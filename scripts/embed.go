// Package scripts embeds the bundled Risor report scripts.
package scripts

import "embed"

// FS holds reports/<name>.risor.
//
//go:embed reports/*.risor
var FS embed.FS

// ReportPath returns the path of a bundled report inside FS.
func ReportPath(name string) string {
	return "reports/" + name + ".risor"
}
