// Package credentials resolves API tokens for live account sources from
// environment variables or files and loads optional dotenv files.
package credentials
