// internal/app/features/budgets/templates.go
package budgets

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "budgets",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
