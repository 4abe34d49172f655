package drive

const (
	MimeGoogleDoc     = "application/vnd.google-apps.document"
	MimeGoogleSheet   = "application/vnd.google-apps.spreadsheet"
	MimeGoogleSlides  = "application/vnd.google-apps.presentation"
	MimeGoogleDrawing = "application/vnd.google-apps.drawing"
	MimeGoogleForm    = "application/vnd.google-apps.form"
	MimeGoogleFolder  = "application/vnd.google-apps.folder"
	MimePDF           = "application/pdf"
	MimeXLSX          = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimePNG           = "image/png"
	MimeTextPlain     = "text/plain"
	MimeTextCSV       = "text/csv"
	MimeTextMarkdown  = "text/markdown"
)

const defaultBinaryExportMIME = MimePDF

// binaryExportFormats holds the export target for each workspace type that
// cannot be downloaded directly.
var binaryExportFormats = map[string]string{
	MimeGoogleDoc:     MimePDF,
	MimeGoogleSheet:   MimeXLSX,
	MimeGoogleSlides:  MimePDF,
	MimeGoogleDrawing: MimePNG,
	MimeGoogleForm:    MimePDF,
}

// textExportFormats is tried first so the content can be previewed and fed
// to the model as text.
var textExportFormats = map[string]string{
	MimeGoogleDoc:   MimeTextPlain,
	MimeGoogleSheet: MimeTextCSV,
}

func IsWorkspaceType(mimeType string) bool {
	_, ok := binaryExportFormats[mimeType]
	return ok
}

func binaryExportFormat(mimeType string) string {
	if f, ok := binaryExportFormats[mimeType]; ok {
		return f
	}
	return defaultBinaryExportMIME
}

func textExportFormat(mimeType string) (string, bool) {
	f, ok := textExportFormats[mimeType]
	return f, ok
}
