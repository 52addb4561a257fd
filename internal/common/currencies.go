package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

type CurrencyConfig struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type CurrenciesConfig struct {
	Currencies []CurrencyConfig `yaml:"currencies"`
}

// LoadCurrencyConfig reads a YAML file of the form
//
//	currencies:
//	  - code: USD
//	    name: US Dollar
func LoadCurrencyConfig(currenciesFile string) ([]CurrencyConfig, error) {
	var currenciesPath string
	if filepath.IsAbs(currenciesFile) {
		currenciesPath = currenciesFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		currenciesPath = filepath.Join(wd, currenciesFile)
	}

	data, err := os.ReadFile(currenciesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", currenciesFile, err)
	}

	var config CurrenciesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", currenciesFile, err)
	}

	if len(config.Currencies) == 0 {
		return nil, fmt.Errorf("%s lists no currencies", currenciesFile)
	}
	for i, currency := range config.Currencies {
		if strings.TrimSpace(currency.Code) == "" {
			return nil, fmt.Errorf("currency at index %d missing code", i)
		}
	}

	return config.Currencies, nil
}

func LoadCurrencyCodes(currenciesFile string) ([]string, error) {
	currencies, err := LoadCurrencyConfig(currenciesFile)
	if err != nil {
		return nil, err
	}

	codes := make([]string, len(currencies))
	for i, currency := range currencies {
		codes[i] = currency.Code
	}

	return codes, nil
}
