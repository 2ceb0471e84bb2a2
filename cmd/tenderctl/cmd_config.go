package main

import (
	"net/url"
	"reflect"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tender-server/internal/config"
)

const redacted = "********"

var secretKeys = map[string]bool{
	"MAIL_API_KEY":         true,
	"S3_ACCESS_KEY_ID":     true,
	"S3_SECRET_ACCESS_KEY": true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration inspection",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration as YAML",
	Long:  `Print every environment key with its resolved value. Secrets and DSN passwords are redacted.`,
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(configValues(cfg))
}

// configValues flattens cfg into its environment keys.
func configValues(cfg *config.Config) map[string]any {
	values := make(map[string]any)
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("env")
		if key == "" {
			continue
		}
		value := v.Field(i).Interface()
		switch {
		case secretKeys[key]:
			if s, ok := value.(string); ok && s != "" {
				value = redacted
			}
		case strings.HasPrefix(key, "DB_POSTGRESQL_") || key == "REDIS_URL":
			if s, ok := value.(string); ok {
				value = redactDSN(s)
			}
		}
		if d, ok := value.(interface{ String() string }); ok {
			value = d.String()
		}
		values[key] = value
	}
	return values
}

func redactDSN(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), redacted)
	}
	return u.String()
}
