// internal/app/features/expenses/templates.go
package expenses

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "expenses",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
