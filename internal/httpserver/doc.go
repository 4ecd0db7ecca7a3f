// Package httpserver is the network face of the service: the WebSocket endpoint feeding the
// broadcast hub, the read-only bin query API, health probes, metrics and static files.
package httpserver
