// Package web serves the browser chat client: an embedded HTML page and a
// WebSocket endpoint speaking the progress-event wire protocol.
//
// Each connection is one session. Clients send {"type":"query","text":...}
// frames; the server answers with one frame per progress event (progress,
// tool_start, tool_end, token, final, error) and processes queries
// strictly sequentially per connection. A malformed frame gets an error
// frame back without closing the connection.
package web
