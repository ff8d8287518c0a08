// Package web embeds the single-page browser UI.
//
// The page calls /me on load, then posts to the generation routes (/create-playlist, /genre-random,
// /top-tracks, /trending) and renders the JSON answer. Everything else happens server side in
// package server.
package web

import (
	"bytes"
	"embed"
	"net/http"
	"time"
)

//go:embed static/index.html
var static embed.FS

// Index returns the raw UI page.
func Index() []byte {
	data, err := static.ReadFile("static/index.html")
	if err != nil {
		panic("web: index.html missing from embedded files")
	}
	return data
}

// Handler serves the UI page.
func Handler() http.Handler {
	page := Index()
	modified := time.Now()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeContent(w, r, "index.html", modified, bytes.NewReader(page))
	})
}
