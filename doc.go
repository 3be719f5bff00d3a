// Package auth implements the PiCloud account subsystem: credential
// storage, purpose-salted expiring tokens, the registration and
// confirmation lifecycle, login sessions, and password recovery.
//
// Credentials:
//   - Passwords are stored as bcrypt digests only. Account exposes
//     SetPassword/VerifyPassword and panics on any attempt to read the
//     password back.
//
// Tokens:
//   - Codec signs short single-purpose tokens (confirmation, recovery).
//     Each purpose gets its own salt, so a token issued for one flow can
//     never verify in another. Expiry is judged at verification time
//     against the caller's max age.
//   - TokenService signs session tokens carrying the account id; live
//     sessions are tracked in Redis so logout revokes them before expiry.
//
// Lifecycle:
//   - Command handlers (RegisterUserHandler, ConfirmAccountHandler,
//     InitializePasswordResetHandler, FinalizePasswordResetHandler)
//     validate their message, run the persistence work in a transaction,
//     and send email best-effort after commit.
//   - Controller exposes the flows over HTTP with cookie sessions.
package auth
