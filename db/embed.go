// Package db embeds the database schema applied at startup.
package db

import _ "embed"

// Schema holds the DDL for schools, labs, professors, profiles, resumes,
// practice attempts, applications, and API keys.
//
//go:embed migrations/001_schema.sql
var Schema string
