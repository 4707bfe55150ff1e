// Package twitchat emits Twitchat custom events through an OBS WebSocket
// connection, namespacing event types so they cannot collide with other
// consumers of the same event channel.
package twitchat
