// Package config loads and watches the bridge settings file.
//
// Settings are YAML with ${VAR} environment substitution. The file
// mirrors the knobs a user would tune for an OBS WebSocket endpoint plus
// the Twitchat event namespace.
package config
