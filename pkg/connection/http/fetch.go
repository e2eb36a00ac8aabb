//go:build !(js && wasm)

package http

import "net/http"

func setFetchOptions(*http.Request) {}
