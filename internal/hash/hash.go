package hash

import "golang.org/x/crypto/bcrypt"

// Hasher wraps bcrypt with a configured cost factor.
type Hasher struct {
	Cost int
}

func New(cost int) Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{Cost: cost}
}

func (h Hasher) HashPassword(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(hashbytes), nil
}

// CheckPassword reports whether password matches the stored digest.
// A mismatch is not an error, it just returns false.
func (h Hasher) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
