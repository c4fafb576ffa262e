// Package node implements LocalNode, an in-process OEF node.
//
// A LocalNode keeps an agent directory and a service directory, answers
// searches by evaluating queries against them, and relays agent messages
// between mailboxes. Agents attach through proxy.LocalProxy, which speaks
// the same envelope encoding as the network transport.
package node
