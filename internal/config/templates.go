package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const templateHeader = `# ottdctl configuration.
# Environment overrides: OTTDCTL_ADDR, OTTDCTL_PASSWORD, OTTDCTL_SECURITY_MODE,
# OTTDCTL_SLACK_APP_TOKEN, OTTDCTL_SLACK_BOT_TOKEN, OTTDCTL_SLACK_CHANNEL,
# OTTDCTL_STORE_PATH, OTTDCTL_STATUS_ADDR, OTTDCTL_STATUS_TOKEN.

`

// Template renders the defaults as a commented TOML file.
func Template() ([]byte, error) {
	body, err := toml.Marshal(fileOf(Default()))
	if err != nil {
		return nil, fmt.Errorf("config template: %w", err)
	}
	return append([]byte(templateHeader), body...), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, template, 0o600)
}
