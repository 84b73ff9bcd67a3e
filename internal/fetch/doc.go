// Package fetch wraps net/http for the upstream GET requests shared by the
// resolver, metadata and subtitle stages. Every failure it returns carries
// services.ErrUpstream.
package fetch
