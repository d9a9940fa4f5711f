// Package web embeds the browser chat UI served by the relay.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/index.html
var index []byte

//go:embed static
var static embed.FS

// Index returns the chat page.
func Index() []byte { return index }

// Static returns the static asset tree rooted at its contents.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
