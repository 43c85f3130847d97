// shared/redis/constants.go
package redis

const (
	// RevokedTokenKeyPrefix marks a signed-out token id until the token would have expired: revoked:{jti}
	RevokedTokenKeyPrefix = "revoked:{%s}"

	// ChangeFeedChannel carries every committed team/player mutation between instances.
	ChangeFeedChannel = "multa:changes"
)
