package models

// CredentialRef is an opaque handle to a stored credential. The core never
// carries plaintext secrets; resolution happens in the credentials provider
// at connect time.
type CredentialRef struct {
	Hostname string
	Username string
}

// Endpoint identifies a single virtualization management server.
// Its session lifecycle is independent: a session may be torn down and
// re-established many times over the endpoint's lifetime.
type Endpoint struct {
	Hostname      string
	CredentialRef CredentialRef
	VerifySSL     bool
	DisplayOrder  int
}
