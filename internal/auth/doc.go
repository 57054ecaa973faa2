// Package auth signs the user in to the current target.
//
// The target decides which credential fields it wants. The identity field is
// collected first, then every remaining field in the order the target lists
// them. Tokens are stored in the session store next to the protocol version
// and, on v2 targets, the selected organization and space.
//
// With Force set nothing is prompted: a missing identity is a user error and
// a rejected login fails on the first attempt.
//
// Example usage:
//
//	flow := &auth.Flow{Store: store, Clients: factory, Prompter: terminal}
//	rec, err := flow.Login(ctx, auth.Input{
//	    Credentials: cloud.Credentials{cloud.IdentityField: "me@example.com"},
//	})
package auth
