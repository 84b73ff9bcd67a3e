// Package resolve turns user input (a canonical BV code, a full video link or
// a shortened redirect link) into the canonical BV code.
//
// Redirects are followed by hand, one GET per hop, so the hop limit and the
// headers sent on each request are under the resolver's control.
package resolve
