// Package util provides shared helpers for safe file-path validation and
// body truncation used across the contracts packages.
//
//   - SafeFilePath / SafeFilePathAllowAbsolute: reject path-traversal attempts
//   - TruncateBody: cap bodies for logging and mismatch descriptions
package util
