package ports

import "github.com/cyberauditpro/cyberaudit/core"

// Tokenizer converts between sessions and signed access tokens
type Tokenizer interface {
	SessionToAccessToken(session *core.Session) (string, error)
	AccessTokenToSession(token string) (*core.Session, error)
}
