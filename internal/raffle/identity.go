package raffle

import "golang.org/x/text/unicode/norm"

// NormalizeIdentity canonicalizes a raw identity string to Unicode NFC.
// Identities are ledger keys: two visually identical strings must map to
// the same account, so every identity entering from user input goes
// through this before it reaches the engine.
func NormalizeIdentity(s string) Identity {
	return Identity(norm.NFC.String(s))
}

// NormalizeToken canonicalizes a raw token symbol to Unicode NFC, for
// the same reason as NormalizeIdentity.
func NormalizeToken(s string) Token {
	return Token(norm.NFC.String(s))
}
