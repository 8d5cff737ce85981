package types

const (
	FlagHome     = "home"
	FlagLogLevel = "log-level"

	DefaultHome     = "$HOME/.file-vault"
	DefaultLogLevel = "info"
)
