package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of nBytes random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// ShuffleStrings returns a uniform random permutation of the input
// using Fisher-Yates with indices drawn from crypto/rand, so the final
// ordering cannot be predicted or influenced by registration timing.
func ShuffleStrings(in []string) ([]string, error) {
	out := make([]string, len(in))
	copy(out, in)

	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, err
		}
		inx := int(j.Int64())
		out[i], out[inx] = out[inx], out[i]
	}

	return out, nil
}
