// Package protocol defines the JSON wire format exchanged with observers.
//
// Inbound frames decode into one concrete Message variant per "type" discriminator.
// Decode validates that every required field is present with the right JSON type and
// reports anything else as a *DecodeError; unrecognised types decode into Unknown so the
// caller can log them. Outbound events are plain structs whose field order mirrors the
// frames browsers already consume.
package protocol
