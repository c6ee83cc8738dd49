package domain

// ExportFile is a rendered download: the workbook bytes plus the name and
// MIME type to serve them under.
type ExportFile struct {
	Name        string
	ContentType string
	Content     []byte
}
