//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package config

// AppEnv represents the application environment
// ENUM(local,production,development,testing)
type AppEnv string

// Debug reports whether verbose logging fits this environment.
func (x AppEnv) Debug() bool { return x != AppEnvProduction }
