package pin

import "golang.org/x/crypto/bcrypt"

// Hash hashes a kiosk PIN for storage on the member record.
func Hash(pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether pin matches the stored hash.
func Verify(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
