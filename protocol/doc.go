// Package protocol implements the OEF wire format.
//
// Messages are protobuf-compatible binaries written with protowire and
// exchanged as length-prefixed frames. The package covers four groups of
// messages:
//
//   - query model: values, attributes, data models, descriptions, constraint
//     trees and queries;
//   - envelopes sent by agents (Message implementations);
//   - notifications sent by the node (ServerMessage implementations);
//   - the four-step connection handshake.
//
// Decoders never panic on untrusted input. Unknown fields are skipped and
// an envelope without a recognised payload decodes to ErrUnknownPayload.
package protocol
