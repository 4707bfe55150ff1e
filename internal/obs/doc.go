// Package obs implements a client for the OBS WebSocket v5 control
// protocol.
//
// The client:
//   - Maintains one logical connection per Manager
//   - Performs the Hello/Identify/Identified handshake, including
//     challenge-response authentication
//   - Correlates concurrent requests with their responses by request id
//   - Runs a dedicated receive goroutine per connection
//   - Reconnects when endpoint or credential configuration changes
package obs
