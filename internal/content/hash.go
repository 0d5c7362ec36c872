package content

import (
	"slices"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/multiformats/go-multihash"
)

// HashFromBytes32 turns a sha2-256 digest stored on chain as bytes32 into a CIDv0.
// Zero or malformed digests give "".
func HashFromBytes32(h string) string {
	digest, err := hexutil.Decode(h)
	if err != nil || len(digest) != 32 || !slices.ContainsFunc(digest, func(b byte) bool { return b != 0 }) {
		return ""
	}
	mh, err := multihash.Encode(digest, multihash.SHA2_256)
	if err != nil {
		return ""
	}
	return multihash.Multihash(mh).B58String()
}
