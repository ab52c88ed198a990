package digest

import "encoding/hex"

// SHA128Hex returns the lowercase hex SHA128 checksum of data.
func SHA128Hex(data []byte) string {
	sum := SHA128Sum(data)
	return hex.EncodeToString(sum[:])
}

// Blake2bHex returns the lowercase hex BLAKE2b checksum of data.
func Blake2bHex(data []byte, size int) (string, error) {
	sum, err := Blake2b(data, size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}
