// Package config defines the run configuration of bigcity and loads it from
// an HCL file.
//
// The file is optional. Every attribute has a default or can be given on
// the command line, and expressions may read environment variables through
// the env object, e.g. password = env.TEAMCITY_PASSWORD. Variables from a
// .env file are visible there as well, without overriding the process
// environment.
package config
