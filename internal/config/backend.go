package config

// ConfigBackend is the platform-native store for non-secret settings.
// The darwin implementation shells out to `defaults` against the
// com.courtlens.app domain; everywhere else a JSON file under the XDG
// config directory is used. Secrets never pass through this interface,
// they live in the platform keychain.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
