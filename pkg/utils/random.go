package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	passwordLetters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordDigits  = "23456789"
)

// GenerateTemporaryPassword returns a random password of length n that satisfies ValidatePassword.
// 生成满足密码策略的临时密码。
func GenerateTemporaryPassword(n int) (string, error) {
	if n < 2 {
		n = 2
	}
	alphabet := passwordLetters + passwordDigits
	out := make([]byte, n)
	for i := range out {
		set := alphabet
		switch i {
		case 0:
			set = passwordLetters
		case 1:
			set = passwordDigits
		}
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return "", err
		}
		out[i] = set[idx.Int64()]
	}
	// move the guaranteed letter and digit away from the front
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}

//Personal.AI order the ending
