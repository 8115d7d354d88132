// Package navigate opens action links.
package navigate

import (
	"io"

	"github.com/pkg/browser"
)

// Navigator opens a URL.
type Navigator interface {
	Open(url string) error
}

// Browser opens URLs in the system browser.
// TODO: restrict to http(s) and a configured origin before opening;
// links currently come straight from notification payloads.
type Browser struct{}

func init() {
	// The launcher's output would corrupt the terminal UI.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// Open launches the system browser on url.
func (Browser) Open(url string) error {
	return browser.OpenURL(url)
}

// Func adapts a function to Navigator.
type Func func(url string) error

// Open calls f.
func (f Func) Open(url string) error {
	return f(url)
}
