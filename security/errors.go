package security

import "errors"

var (
	// ErrAuthentication indicates GCM tag verification failed: the
	// ciphertext, IV or tag was altered, or the key is wrong.
	ErrAuthentication = errors.New("authentication failed: invalid tag or corrupted data")
)
