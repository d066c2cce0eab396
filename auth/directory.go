package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"banking-ui/models"
)

var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Authenticator resolves a username/password pair to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (models.Principal, error)
}

// DemoCardNumber is the card of the built-in demo customer.
const DemoCardNumber = "4123456789012345"

type demoAccount struct {
	principal    models.Principal
	passwordHash []byte
}

// DemoDirectory is the fixed two-identity table the demo ships with.
type DemoDirectory struct {
	accounts map[string]demoAccount
}

func NewDemoDirectory() (*DemoDirectory, error) {
	return newDemoDirectory(bcrypt.DefaultCost)
}

func newDemoDirectory(cost int) (*DemoDirectory, error) {
	seed := []struct {
		password  string
		principal models.Principal
	}{
		{"pass", models.Principal{
			ID:           "1",
			Username:     "cust1",
			Role:         models.RoleCustomer,
			CardNumber:   DemoCardNumber,
			CustomerName: "John Doe",
		}},
		{"admin", models.Principal{
			ID:       "2",
			Username: "admin",
			Role:     models.RoleAdmin,
		}},
	}

	d := &DemoDirectory{accounts: make(map[string]demoAccount, len(seed))}
	for _, s := range seed {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash demo password for %s: %w", s.principal.Username, err)
		}
		d.accounts[s.principal.Username] = demoAccount{principal: s.principal, passwordHash: hash}
	}
	return d, nil
}

func (d *DemoDirectory) Authenticate(_ context.Context, username, password string) (models.Principal, error) {
	acct, ok := d.accounts[username]
	if !ok {
		return models.Principal{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return models.Principal{}, ErrInvalidCredentials
	}
	return acct.principal, nil
}
