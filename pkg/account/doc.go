// Package account implements user accounts: signup, login, profile lookup
// and withdrawal.
//
// Signup requires a valid verification code, which is consumed so it cannot
// be replayed. Passwords are hashed with bcrypt behind the PasswordHasher
// interface. Login failures for unknown emails and wrong passwords are
// indistinguishable, both in the returned error and in timing.
//
// # Basic Usage
//
//	import "github.com/tendant/simple-auth/pkg/account"
//
//	repo := account.NewPgUserRepository(pool)
//	service := account.NewAccountService(repo, tokenGen, verificationService)
//
//	user, err := service.Signup(ctx, email, password, code)
//
//	result, err := service.Login(ctx, email, password)
//	// result.Token is a signed JWT valid for two hours by default
//
//	err = service.Withdraw(ctx, userID, password)
//
// # Related Packages
//
//   - pkg/verification - code issue and consumption
//   - pkg/tokengenerator - JWT signing
package account
