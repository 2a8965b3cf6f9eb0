// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package inscriptions

import (
	"github.com/btcsuite/btcd/txscript"
)

// Tag defines special tag for distinguishing envelope field type.
type Tag byte

const (
	// TagContentType defines content-type tag in the inscription protocol.
	// The value is the MIME type of the body.
	TagContentType Tag = 1
	// TagPointer defines pointer tag in the inscription protocol.
	// Points on the sat at the given position in the outputs for the inscription to be made.
	TagPointer Tag = 2
	// TagMetadata defines metadata tag in the inscription protocol.
	// Concatenate all Metadata-Tag pushes before decoding.
	TagMetadata Tag = 5
	// TagMetaprotocol defines meta-protocol tag in the inscription protocol.
	TagMetaprotocol Tag = 7
	// TagContentEncoding defines content-encoding tag in the inscription protocol.
	TagContentEncoding Tag = 9
	// TagRune defines rune commitment tag, required in the etching reveal script.
	TagRune Tag = 13
	// TagNote defines Note tag in the inscription protocol.
	TagNote Tag = 15
)

// IntoDataPush returns Tag as bytes array with OP_PUSH command.
func (t Tag) IntoDataPush() []byte {
	return []byte{txscript.OP_DATA_1, byte(t)}
}

// IsEven returns true for tags which must be recognized by the parser.
func (t Tag) IsEven() bool {
	return t%2 == 0
}
