// Package assets embeds the SQL migrations shipped with the scoreboard
// server.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed sql/*.sql
var FS embed.FS

// Migrations returns the migration files rooted at the sql directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		// The embed pattern above guarantees the directory exists.
		panic(err)
	}
	return sub
}
