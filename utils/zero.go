package utils

// ZeroBytes overwrites b with zero bytes, for wiping CEKs, KEKs, shared
// secrets, and other key material before it falls out of scope.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
