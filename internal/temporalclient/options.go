// Package temporalclient loads Temporal client configuration through the
// SDK's envconfig contrib package, so the worker and client binaries pick up
// environment variables (TEMPORAL_HOST_URL, TEMPORAL_NAMESPACE,
// TEMPORAL_TLS_CERT, etc.) and config files (config.toml) without flags.
package temporalclient

import (
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/contrib/envconfig"
)

// LoadClientOptions loads Temporal client options using the envconfig
// system. Non-empty overrides replace the host:port and namespace from the
// environment.
func LoadClientOptions(hostPortOverride, namespaceOverride string) (client.Options, error) {
	opts, err := envconfig.LoadClientOptions(envconfig.LoadClientOptionsRequest{})
	if err != nil {
		return client.Options{}, err
	}

	if hostPortOverride != "" {
		opts.HostPort = hostPortOverride
	}
	if namespaceOverride != "" {
		opts.Namespace = namespaceOverride
	}

	return opts, nil
}

// MustLoadClientOptions is like LoadClientOptions but panics on error.
func MustLoadClientOptions(hostPortOverride, namespaceOverride string) client.Options {
	opts, err := LoadClientOptions(hostPortOverride, namespaceOverride)
	if err != nil {
		panic("failed to load Temporal client options: " + err.Error())
	}
	return opts
}
