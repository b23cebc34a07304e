// Package auth provides request signers for the hitwire client.
//
// Signers run last, after the URL, body and compression headers are final,
// so OAuth1Signer signs exactly what goes on the wire. Both signers share
// KindOAuth; installing one with Client.SetSigner replaces the other.
//
//	client.SetSigner(auth.NewOAuth1Signer(auth.Credentials{
//		ConsumerKey:    "key",
//		ConsumerSecret: "secret",
//	}, auth.Header))
package auth
