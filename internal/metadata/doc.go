// Package metadata talks to the view and player endpoints: it maps a canonical
// video code to its aid/cid pair and lists the subtitle tracks attached to
// that pair. Language selection helpers (exact allow-lists and en/zh/other
// priority buckets) live here as well.
package metadata
