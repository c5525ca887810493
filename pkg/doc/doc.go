// Package doc embeds the help topics shipped with jiminy and registers
// them with the glazed help system.
package doc

import (
	"embed"

	"github.com/go-go-golems/glazed/pkg/help"
)

//go:embed topics/*.md
var docFS embed.FS

// AddDocToHelpSystem loads every embedded topic into the help system.
func AddDocToHelpSystem(helpSystem *help.HelpSystem) error {
	return helpSystem.LoadSectionsFromFS(docFS, ".")
}
