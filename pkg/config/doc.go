// Package config loads typed configuration structs from environment
// variables using caarlos0/env tags, with optional .env support for local
// development via godotenv.
//
// Each configuration type is parsed once per process and cached, so packages
// can declare their own Config struct and call Load without coordinating a
// central settings object.
package config
