// Package actions speaks the GitHub Actions runner protocol.
//
// Inputs arrive as INPUT_* environment variables; PATH additions and exported
// variables are appended to the files named by GITHUB_PATH and GITHUB_ENV.
// Outside of a runner the same calls only affect the current process.
package actions
