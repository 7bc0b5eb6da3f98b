// Package config loads the exporter configuration from flags and environment
// variables.
//
// Every setting has a flag and an environment variable; a flag given on the
// command line wins over the environment, which wins over the default:
//
//	cmd := &cobra.Command{Use: "wa-exporter"}
//	config.RegisterFlags(cmd.Flags())
//	...
//	cfg, err := config.Load(cmd.Flags())
//
// Load validates the result. Validation errors are classified invalid, see
// errors.IsInvalid.
//
// Config.String and Config.Redacted mask the API password and the password
// embedded in the database URI, so the configuration can be logged at startup.
package config
