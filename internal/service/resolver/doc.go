// Package resolver turns a version specifier into one concrete release.
package resolver
