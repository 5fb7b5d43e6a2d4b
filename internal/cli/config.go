package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matzehuels/uvmigrate/pkg/errors"
	"github.com/matzehuels/uvmigrate/pkg/pipeline"
)

// loadConfig builds the layered configuration for a command. Precedence from
// highest to lowest: explicit flags, UVMIGRATE_* environment variables, the
// config file, flag defaults.
//
// The config file is $XDG_CONFIG_HOME/uvmigrate/config.toml (falling back to
// ~/.config/uvmigrate/config.toml) and is skipped silently when absent. Keys
// mirror the migrate command's long flag names:
//
//	merge-groups = true
//	import-index = ["https://pypi.internal.example.com/simple"]
//
// The matching environment variables replace dashes with underscores, so
// UVMIGRATE_MERGE_GROUPS=1 enables merge-groups.
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	dir, err := configDir()
	if err != nil {
		// No resolvable home directory; flags and environment still apply.
		return v, nil
	}
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "reading config file")
		}
	}
	return v, nil
}

// migrateOptions converts the layered configuration into pipeline options.
// The review hook and logger are attached separately by the caller.
func migrateOptions(v *viper.Viper, dir string) pipeline.Options {
	return pipeline.Options{
		Dir:                 dir,
		MergeGroups:         v.GetBool("merge-groups"),
		DisableRestore:      v.GetBool("disable-restore"),
		ImportIndexes:       v.GetStringSlice("import-index"),
		ImportGlobalPipConf: v.GetBool("import-global-pip-conf"),
		DryRun:              v.GetBool("dry-run"),
	}
}
