package lsp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/temirov/cabalfmt/internal/config"
)

// settingsSection is the key editors nest cabal-fmt settings under.
const settingsSection = "cabal-fmt"

// editorSettings mirrors the settings section editors send in
// initializationOptions and workspace/didChangeConfiguration.
type editorSettings struct {
	BinaryPath *string `mapstructure:"binaryPath"`
	Indent     *int    `mapstructure:"indent"`
	AutoFormat *bool   `mapstructure:"autoFormat"`
}

// decodeSettings reads editor settings either nested under the cabal-fmt section or flat.
// Absent or null payloads yield empty settings.
func decodeSettings(payload json.RawMessage) (config.FormatterConfiguration, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return config.FormatterConfiguration{}, nil
	}
	var raw map[string]any
	if unmarshalErr := json.Unmarshal(trimmed, &raw); unmarshalErr != nil {
		return config.FormatterConfiguration{}, fmt.Errorf("decode settings: %w", unmarshalErr)
	}
	if section, nested := raw[settingsSection].(map[string]any); nested {
		raw = section
	}

	var settings editorSettings
	decoder, decoderErr := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &settings,
		WeaklyTypedInput: true,
	})
	if decoderErr != nil {
		return config.FormatterConfiguration{}, decoderErr
	}
	if decodeErr := decoder.Decode(raw); decodeErr != nil {
		return config.FormatterConfiguration{}, fmt.Errorf("decode %s settings: %w", settingsSection, decodeErr)
	}

	configuration := config.FormatterConfiguration{
		BinaryPath: settings.BinaryPath,
		Indent:     settings.Indent,
		AutoFormat: settings.AutoFormat,
	}
	if validationErr := configuration.Validate(); validationErr != nil {
		return config.FormatterConfiguration{}, validationErr
	}
	return configuration, nil
}
