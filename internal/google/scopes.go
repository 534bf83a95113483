package google

import (
	drive "google.golang.org/api/drive/v3"
	gmail "google.golang.org/api/gmail/v1"
	sheets "google.golang.org/api/sheets/v4"
)

// Scopes are the OAuth scopes requested for an account:
//   - Gmail: read and change labels, send the digest
//   - Drive: find the configuration spreadsheets by name
//   - Sheets: read the configuration tables
var Scopes = []string{
	gmail.GmailModifyScope,
	gmail.GmailSendScope,
	drive.DriveMetadataReadonlyScope,
	sheets.SpreadsheetsReadonlyScope,
}
