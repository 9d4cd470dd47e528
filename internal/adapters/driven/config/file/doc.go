// Package file provides the TOML-backed configuration store.
//
// Values are read from config.toml, then overridden by environment
// variables named RAGINDEX_<SECTION>_<KEY>. A .env file next to the
// config file, or in the working directory, is loaded first.
package file
