package config

import "sync"

// Provider supplies the formatter configuration in effect right now.
// Consumers call Current at the start of every invocation and never cache the result,
// so changes take effect on the next format.
type Provider interface {
	Current() (FormatterConfiguration, error)
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc func() (FormatterConfiguration, error)

// Current invokes the underlying function.
func (provider ProviderFunc) Current() (FormatterConfiguration, error) {
	return provider()
}

// StaticProvider always returns the same configuration.
type StaticProvider struct {
	Configuration FormatterConfiguration
}

// Current returns the fixed configuration.
func (provider StaticProvider) Current() (FormatterConfiguration, error) {
	return provider.Configuration, nil
}

// FileProvider re-reads configuration files and the environment on every call
// and applies command line overrides on top.
type FileProvider struct {
	options   LoadOptions
	overrides FormatterConfiguration
}

// NewFileProvider creates a FileProvider.
func NewFileProvider(options LoadOptions, overrides FormatterConfiguration) *FileProvider {
	return &FileProvider{options: options, overrides: overrides}
}

// Current loads the layered configuration.
func (provider *FileProvider) Current() (FormatterConfiguration, error) {
	loaded, loadErr := LoadFormatterConfiguration(provider.options)
	if loadErr != nil {
		return FormatterConfiguration{}, loadErr
	}
	merged := loaded.Merge(provider.overrides)
	if validationErr := merged.Validate(); validationErr != nil {
		return FormatterConfiguration{}, validationErr
	}
	return merged, nil
}

// SessionProvider layers settings pushed by an editor session over a base provider.
type SessionProvider struct {
	base     Provider
	mutex    sync.RWMutex
	settings FormatterConfiguration
}

// NewSessionProvider creates a SessionProvider with no session settings.
func NewSessionProvider(base Provider) *SessionProvider {
	return &SessionProvider{base: base}
}

// Update replaces the session settings.
func (provider *SessionProvider) Update(settings FormatterConfiguration) {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	provider.settings = settings
}

// Current merges the session settings over the base configuration.
func (provider *SessionProvider) Current() (FormatterConfiguration, error) {
	var baseConfiguration FormatterConfiguration
	if provider.base != nil {
		loaded, loadErr := provider.base.Current()
		if loadErr != nil {
			return FormatterConfiguration{}, loadErr
		}
		baseConfiguration = loaded
	}
	provider.mutex.RLock()
	settings := provider.settings
	provider.mutex.RUnlock()
	merged := baseConfiguration.Merge(settings)
	if validationErr := merged.Validate(); validationErr != nil {
		return FormatterConfiguration{}, validationErr
	}
	return merged, nil
}
