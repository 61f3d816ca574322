package utils

import (
	"errors"
	"io"
	"unicode"
)

func ReadToEnd(r io.Reader) ([]byte, error) {
	BUF_SIZE := 1024 * 8
	buffer := make([]byte, BUF_SIZE)
	result := []byte{}
	for {
		numRead, err := r.Read(buffer)
		result = append(result, buffer[:numRead]...)
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func Any[T any](xs []T, pred func(T) bool) bool {
	for _, x := range xs {
		if pred(x) {
			return true
		}
	}
	return false
}

// NB: Includes "".
func IsBlank(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
