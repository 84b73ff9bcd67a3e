// Package server exposes the subtitle pipeline over a small JSON HTTP API:
// POST /api/subtitle returns the text and SRT of the best matching track,
// GET /api/tracks lists what a video offers, and GET /health reports liveness.
package server
