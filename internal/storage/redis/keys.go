package redis

import "fmt"

// Key prefix for all service data
const keyPrefix = "fiteval"

// credentialKey returns the Redis key for a Credential
func credentialKey(username string) string {
	return fmt.Sprintf("%s:credential:%s", keyPrefix, username)
}

// sessionKey returns the Redis key for a Session
func sessionKey(token string) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, token)
}

// sessionPattern matches every session key
func sessionPattern() string {
	return fmt.Sprintf("%s:session:*", keyPrefix)
}
