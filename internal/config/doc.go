// Package config loads snapwatch configuration.
//
// # Resolution Order
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/snapwatch/config.toml
//  3. A missing file is not an error; every field has a default
//  4. SNAPWATCH_* environment variables override file values. A .env file in
//     the working directory is loaded first and never replaces variables that
//     are already set
//
// # Fields
//
//	api_bind  = "127.0.0.1:7488"                      # client: API address
//	listen    = "127.0.0.1:7488"                      # snapwatchd: listen address
//	db_path   = "~/.local/share/snapwatch/snapshots.db"
//	log_level = "info"                                # debug | info | warn | error
//	log_file  = "~/.local/share/snapwatch/snapwatch.log"
//	theme     = "Nightfox"
//
// Paths beginning with ~ are expanded against the user's home directory.
package config
