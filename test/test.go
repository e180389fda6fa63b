package test

import (
	"fmt"
	"math/rand"
)

// RandomBytes generates a random byte slice of specified length
func RandomBytes(length int) []byte {
	b := make([]byte, length)
	rand.Read(b)
	return b
}

// RandomString generates a random string of specified length
func RandomString(length int) string {
	b := RandomBytes(length / 2)
	return fmt.Sprintf("%x", b)
}

// SequentialBytes generates [1, 2, ..., length] for deterministic fixtures
func SequentialBytes(length int) []byte {
	b := make([]byte, length)
	for i := range b {
		b[i] = byte(i + 1)
	}
	return b
}
