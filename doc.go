// Package auth implements the account lifecycle behind the /api auth
// endpoints: registration through emailed activation links, credential
// login with JWT sessions, password resets, and the route guards that
// protect signed-in and admin resources.
//
// Registration:
//   - Register never writes to the database. The pending name, email, and
//     password travel inside a signed activation token that is emailed to
//     the applicant; the account row is created only when that token is
//     redeemed. Concurrent activations for the same email settle at the
//     store's unique email constraint.
//
// Tokens:
//   - Activation, reset, and session tokens are HS256 JWTs minted with
//     three independent secrets, so leaking one secret never lets a caller
//     forge tokens of another kind. Reset tokens are additionally mirrored
//     into the account's reset_password_link column and cleared when
//     consumed, making each reset link single use.
//
// Notifications:
//   - Activation and reset emails render from embedded django templates
//     and deliver through AWS SESv2 (or a logging mailer in development).
//     Delivery is awaited; a failed send fails the request that needed it.
package auth
