//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// Cost 14 hashes take seconds under the race detector; use the library
// default so -race suites finish inside their timeouts.
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
