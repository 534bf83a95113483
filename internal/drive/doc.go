// Package drive looks up files in Google Drive.
//
// The jobs only need to find their configuration spreadsheets by name, so
// the client exposes a narrow search over the Drive v3 files API using the
// account's OAuth token from the google package.
package drive
