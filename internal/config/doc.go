// SPDX-License-Identifier: MPL-2.0

// Package config handles lambkin configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/lambkin/config.cue (resolved with
// adrg/xdg), an explicit --config path, or ./config.cue. Files are validated
// against the embedded #Config schema in config_schema.cue before being merged
// over the defaults. LAMBKIN_* environment variables override file values, with
// dots replaced by underscores (LAMBKIN_AWS_REGION sets aws.region).
package config
