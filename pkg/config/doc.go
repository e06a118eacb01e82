// Package config loads the application configuration with viper.
//
// Values come from the config file, then built-in defaults, then
// environment variables. Both the NEO4J_* and the MANGA_ANIME_* variables
// are honoured, MANGA_ANIME_NEO4J_* taking precedence over NEO4J_*.
package config
