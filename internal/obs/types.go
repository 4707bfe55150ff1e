package obs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OBS WebSocket v5 opcodes.
const (
	opHello         = 0 // server -> client, starts the handshake
	opIdentify      = 1 // client -> server
	opIdentified    = 2 // server -> client, handshake ack
	opEvent         = 5 // server -> client
	opRequest       = 6 // client -> server
	opResponse      = 7 // server -> client
	opBatchResponse = 8 // server -> client
)

// Errors
var (
	ErrNotConnected           = errors.New("obs websocket is not connected")
	ErrTimeout                = errors.New("timed out waiting for obs response")
	ErrAuthenticationRequired = errors.New("obs websocket requires a password but none was configured")
	ErrHandshake              = errors.New("obs handshake failed")
)

// frame is the protocol envelope for every message on the wire.
type frame struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

// helloData is the payload of an opHello frame.
type helloData struct {
	RPCVersion     int            `json:"rpcVersion"`
	Authentication *authChallenge `json:"authentication,omitempty"`
}

// authChallenge carries the server's authentication material.
type authChallenge struct {
	Challenge string `json:"challenge"`
	Salt      string `json:"salt"`
}

// identifyData is the payload of an opIdentify frame.
type identifyData struct {
	RPCVersion         int    `json:"rpcVersion"`
	EventSubscriptions int    `json:"eventSubscriptions"`
	Authentication     string `json:"authentication,omitempty"`
}

// requestPayload is the payload of an opRequest frame.
type requestPayload struct {
	RequestType string `json:"requestType"`
	RequestID   string `json:"requestId"`
	RequestData any    `json:"requestData"`
}

// responsePayload is the payload of an opResponse or opBatchResponse frame.
type responsePayload struct {
	RequestType   string          `json:"requestType"`
	RequestID     string          `json:"requestId"`
	RequestStatus requestStatus   `json:"requestStatus"`
	ResponseData  json.RawMessage `json:"responseData"`
}

// requestStatus is the server's verdict on a request.
type requestStatus struct {
	Result  bool   `json:"result"`
	Code    int    `json:"code"`
	Comment string `json:"comment,omitempty"`
}

// eventPayload is the payload of an opEvent frame.
type eventPayload struct {
	EventType string `json:"eventType"`
}

// RequestError is returned when OBS explicitly rejects a request.
type RequestError struct {
	RequestType string
	Code        int
	Comment     string
}

func (e *RequestError) Error() string {
	comment := e.Comment
	if comment == "" {
		comment = "unknown obs request failure"
	}
	return fmt.Sprintf("%s failed with code %d: %s", e.RequestType, e.Code, comment)
}
