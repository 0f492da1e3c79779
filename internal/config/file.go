package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/stackrun/internal/model"
)

// readConfigFile loads the explicit config file, or the first of
// configFileNames found in workDir. It returns the path that was read,
// or "" when no file was found and none was requested.
func readConfigFile(v *viper.Viper, workDir, explicit string) (string, error) {
	path := ""
	if explicit != "" {
		path = absPath(workDir, explicit)
		if _, err := os.Stat(path); err != nil {
			return "", model.NewCLIError(model.ExitUsageError,
				fmt.Sprintf("config file %s not found", path))
		}
	} else {
		for _, name := range configFileNames {
			candidate := filepath.Join(workDir, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return "", nil
	}

	if err := readInto(v, path); err != nil {
		return "", model.WrapCLIError(model.ExitUsageError,
			fmt.Sprintf("error reading config file %s", path), err)
	}
	return path, nil
}

// readInto reads path into v. JSONC files have their comments and trailing
// commas stripped first, since viper only understands plain JSON.
func readInto(v *viper.Viper, path string) error {
	if filepath.Ext(path) != ".jsonc" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	v.SetConfigType("json")
	return v.ReadConfig(bytes.NewReader(jsonc.ToJSON(data)))
}
