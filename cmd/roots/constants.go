package main

// Default limits for CLI commands.
const (
	DefaultSearchLimit = 10
	DefaultActor       = "roots"
)

// Valid export formats.
var validFormats = []string{"json", "csv"}

// Valid import formats.
var validImportFormats = []string{"auto", "json", "csv"}
