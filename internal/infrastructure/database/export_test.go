package database

// ParseMigrationFilename exposes parseMigrationFilename to external tests.
var ParseMigrationFilename = parseMigrationFilename
