// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil/psbt"
)

// ExtractAddressTypeInputIndexesFromPSBT returns map with input kinds and indexes to sign.
func ExtractAddressTypeInputIndexesFromPSBT(data []byte) (map[InputsHelpingKey][]int, error) {
	var result = make(map[InputsHelpingKey][]int, 2)
	p, err := psbt.NewFromRawBytes(bytes.NewBuffer(data), false)
	if err != nil {
		return nil, err
	}

	for _, unknown := range p.Unknowns {
		key, err := InputsHelpingKeyFromBytes(unknown.Key)
		if err != nil {
			return nil, err
		}

		result[key] = make([]int, len(unknown.Value))
		for idx, val := range unknown.Value {
			result[key][idx] = int(val)
		}
	}

	return result, nil
}
