// Package proxy connects an agent to an OEF node and dispatches what the
// node sends back.
//
// NetworkProxy talks to a node over TCP using length-prefixed frames and
// the challenge-response handshake. LocalProxy attaches to an in-process
// node.LocalNode. Both hand inbound frames to Loop, which decodes them and
// calls the matching Handler method.
package proxy
