// Package stream provides the WebSocket tap, a sink kind that accepts every
// port type and broadcasts what it receives to WebSocket clients as JSON.
//
// Each message is a data envelope:
//
//	{"type":"data","id":"...","timestamp":1700000000000,"data_type":"text","payload":{"text":"hi"}}
//
// Image payloads are summarized by their dimensions; pixels are not sent.
// Clients are written to from their own goroutine through a small
// drop-oldest queue, so a slow client never stalls the emitting module.
package stream
