//go:build js && wasm

package http

import "net/http"

// setFetchOptions passes fetch options through net/http's js.fetch headers,
// so browsers send cookies and allow cross origin servers.
func setFetchOptions(req *http.Request) {
	req.Header.Set("js.fetch:mode", "cors")
	req.Header.Set("js.fetch:credentials", "include")
}
