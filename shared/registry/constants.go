// shared/registry/constants.go
package registry

const (
	// RedisRegistryHashPrefix is the prefix used for Redis hash keys that store
	// service registration data. The full key format will be:
	// "services:<serviceType>"
	// Example: "services:multa-service"
	RedisRegistryHashPrefix = "services:"

	// MultaServiceType is the registry type of the multa-service instances.
	MultaServiceType = "multa-service"
)

func hashKey(serviceType string) string {
	return RedisRegistryHashPrefix + serviceType
}
